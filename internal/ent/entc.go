//go:build ignore

package main

import (
	"context"

	"entgo.io/ent/entc"
	"entgo.io/ent/entc/gen"
	"go.uber.org/zap"

	"github.com/volaticloud/pulse/internal/logger"
)

func main() {
	// Initialize logger for code generation
	ctx, log := logger.PrepareLogger(context.Background())
	defer func() { _ = logger.Sync(ctx) }()

	if err := entc.Generate("./schema", &gen.Config{}); err != nil {
		log.Fatal("Failed to generate ENT code", zap.Error(err))
	}
}
