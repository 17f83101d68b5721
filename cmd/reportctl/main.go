// reportctl exports tabular reports to CSV, XLSX and PDF.
//
// Usage:
//
//	# Export a JSON or YAML record list
//	reportctl export --records users.json --columns columns.yaml --format pdf --out ./out
//
//	# Run a batch file of export requests
//	reportctl batch --file batch.json --out ./out
//
//	# Show recent export history
//	reportctl history --limit 20
//
//	# Serve the export HTTP API
//	reportctl serve --config config.yaml
package main

func main() {
	Execute()
}
