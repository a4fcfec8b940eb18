//go:build ignore

// Package main generates a synthetic document corpus for benchmarking
// `docsearch index` and `docsearch search`.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

// Word pools for generating policy-style documents
var (
	topics = []string{
		"Refunds", "Shipping", "Warranty", "Billing", "Accounts",
		"Returns", "Privacy", "Subscriptions", "Gift Cards", "Support",
	}
	subjects = []string{
		"Orders", "Customers", "Invoices", "Payments", "Deliveries",
		"Damaged goods", "Replacement parts", "Store credits", "Tickets", "Passwords",
	}
	verbs = []string{
		"are processed", "are reviewed", "are issued", "are replaced", "are refunded",
		"are confirmed", "are escalated", "are archived", "are verified", "are shipped",
	}
	clauses = []string{
		"within two business days", "after manual review", "at no extra cost",
		"once payment clears", "by the regional team", "before the billing cycle ends",
		"when the carrier confirms receipt", "on request", "unless stated otherwise",
	}
)

func sentence(r *rand.Rand) string {
	return fmt.Sprintf("%s %s %s.",
		subjects[r.Intn(len(subjects))], verbs[r.Intn(len(verbs))], clauses[r.Intn(len(clauses))])
}

// markdownDoc builds a document with one H1 and a few H2 sections.
func markdownDoc(r *rand.Rand, i int) string {
	var b strings.Builder
	topic := topics[i%len(topics)]
	fmt.Fprintf(&b, "# %s Policy %d\n", topic, i)
	b.WriteString(sentence(r) + "\n")
	for s := 0; s < 2+r.Intn(4); s++ {
		fmt.Fprintf(&b, "\n## %s %d\n", subjects[r.Intn(len(subjects))], s+1)
		for l := 0; l < 1+r.Intn(3); l++ {
			b.WriteString(sentence(r) + "\n")
		}
	}
	return b.String()
}

// textDoc builds a FAQ-style document, one statement per line.
func textDoc(r *rand.Rand) string {
	var b strings.Builder
	for l := 0; l < 3+r.Intn(8); l++ {
		b.WriteString(sentence(r) + "\n")
	}
	return b.String()
}

func main() {
	flag.Parse()
	r := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating %d files in %s...\n", *numFiles, *outputDir)

	// 70% markdown, 30% plain text
	mdFiles := *numFiles * 70 / 100
	for i := 0; i < *numFiles; i++ {
		name, content := fmt.Sprintf("faq-%05d.txt", i), textDoc(r)
		if i < mdFiles {
			name, content = fmt.Sprintf("policy-%05d.md", i), markdownDoc(r, i)
		}
		if err := os.WriteFile(filepath.Join(*outputDir, name), []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("Done. Index with: docsearch index --data %s\n", *outputDir)
}
