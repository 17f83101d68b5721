// Package exportchromium rasterizes report header HTML with a headless
// Chromium browser.
//
// Each Rasterize call starts its own browser allocator and tab and tears both
// down before returning, so concurrent exports never share rendered content.
// When no browser binary can be found, Available reports false and the
// exporter falls back to the plain-text rasterizer.
package exportchromium
