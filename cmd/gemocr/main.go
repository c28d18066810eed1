// gemocr extracts text from images and PDFs with a remote vision model
// and assembles the results into a single markdown document.
package main

import "github.com/gemocr/gemocr/internal/cli"

func main() {
	cli.Execute()
}
