package cache

import (
	"context"
	"time"
)

// Noop is the Cache used when no REDIS_URL is configured. Every read misses
// and every write succeeds silently.
type Noop struct{}

func (Noop) Ping(context.Context) error { return nil }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Delete(context.Context, string) error { return nil }

func (Noop) SetJobStatus(context.Context, string, string, time.Duration) error { return nil }

func (Noop) GetJobStatus(context.Context, string) (string, bool, error) { return "", false, nil }

func (Noop) IncrWithExpiry(context.Context, string, time.Duration) (int64, error) { return 0, nil }

var _ Cache = Noop{}
