package cron

import (
	"context"
	"testing"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRunOrderAndRejectsRepeatedNames(t *testing.T) {
	registry := NewRegistry(namedJob("daily-sales-rollup"), nil, namedJob("outbox-retention"))
	if registry.Register(namedJob("daily-sales-rollup")) {
		t.Fatal("a second sales rollup must be refused")
	}
	if registry.Register(nil) {
		t.Fatal("nil job must be refused")
	}

	names := registry.Names()
	if len(names) != 2 || names[0] != "daily-sales-rollup" || names[1] != "outbox-retention" {
		t.Fatalf("unexpected jobs %v", names)
	}

	jobs := registry.Jobs()
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatal("Jobs must return a copy")
	}
}
