package indexing

import (
	"fmt"
	"testing"

	"github.com/gcbaptista/go-book-indexer/config"
	"github.com/gcbaptista/go-book-indexer/model"
	"github.com/gcbaptista/go-book-indexer/store"
)

// generateTestDocuments creates a slice of test documents for benchmarking
func generateTestDocuments(count int) []model.Document {
	docs := make([]model.Document, count)
	for i := 0; i < count; i++ {
		docs[i] = model.Document{
			"title": fmt.Sprintf("Test Book %d: Volume %d", i, i%7),
			"text":  fmt.Sprintf("This is book number %d, with some content for indexing and tag_%d.", i, i%10),
		}
	}
	return docs
}

func BenchmarkBuild(b *testing.B) {
	svc, err := NewService(config.IndexSettings{Name: "benchmark_test"})
	if err != nil {
		b.Fatal(err)
	}

	for _, size := range []int{100, 1000, 10000} {
		collection := store.NewCollection(generateTestDocuments(size))
		b.Run(fmt.Sprintf("docs_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				svc.Build(collection)
			}
		})
	}
}

func BenchmarkTokens(b *testing.B) {
	svc, err := NewService(config.IndexSettings{Name: "benchmark_test"})
	if err != nil {
		b.Fatal(err)
	}
	doc := generateTestDocuments(1)[0]

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		svc.Tokens(doc)
	}
}
