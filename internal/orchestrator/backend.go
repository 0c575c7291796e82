//go:generate go run go.uber.org/mock/mockgen -source=backend.go -destination=../mocks/mock_backend.go -package=mocks

package orchestrator

import (
	"context"

	"github.com/ppiankov/clauseguard/internal/api"
	"github.com/ppiankov/clauseguard/internal/model"
)

// Backend is the remote clause analysis service as seen by the orchestrator.
// *api.Client implements it.
type Backend interface {
	AnalyzeText(ctx context.Context, text string) (*api.Analysis, error)
	AnalyzeFile(ctx context.Context, file *model.FileRef) (*api.Analysis, error)
	NarrateText(ctx context.Context, text string) (*api.Narration, error)
	NarrateFile(ctx context.Context, file *model.FileRef) (*api.Narration, error)
}

var _ Backend = (*api.Client)(nil)
