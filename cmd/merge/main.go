// Command merge combines sales report spreadsheets into one sorted workbook.
//
//	merge [files...] --sort-key 單號 --output out.xlsx
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment or flags configure the run.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
