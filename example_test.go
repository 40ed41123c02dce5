package imgsim_test

import (
	"context"
	"fmt"

	"github.com/hupe1980/imgsim"
	"github.com/hupe1980/imgsim/embedder"
	"github.com/hupe1980/imgsim/vectorstore/flat"
)

func Example() {
	ctx := context.Background()

	// The stub embedder stands in for a CLIP sidecar here; production code
	// uses embedder.NewCLIP("http://localhost:8000").
	emb := embedder.NewStub(4)
	emb.SetTextVector("a photo of a cat", []float32{1, 0, 0, 0})

	engine, err := imgsim.New(emb, flat.New())
	if err != nil {
		panic(err)
	}
	defer engine.Close()

	report, err := engine.BuildDatabase(ctx, "./photos")
	if err != nil {
		panic(err)
	}
	fmt.Printf("indexed %d images\n", report.Total)

	matches, err := engine.SearchByText(ctx, "a photo of a cat", 5)
	if err != nil {
		panic(err)
	}
	for _, m := range matches {
		fmt.Printf("%.3f %s\n", m.Similarity, m.ID)
	}

	// Output:
	// indexed 0 images
}
