package ports

import (
	"context"

	"github.com/bnema/whitebunny-cli/internal/domain"
)

type AdNetwork interface {
	ReportStats(ctx context.Context) error
	FetchAd(ctx context.Context) (domain.AdDescriptor, error)
	Beacon(ctx context.Context, url string) error
}
