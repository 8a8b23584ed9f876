package source_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyhub/pricewatch/internal/domain"
	"github.com/notifyhub/pricewatch/internal/source"
)

func validSpec(kind source.Kind) source.Spec {
	return source.Spec{
		ID:             "s1",
		Kind:           kind,
		Priority:       1,
		MaxAttempts:    3,
		AttemptTimeout: 10 * time.Second,
		RetryDelay:     time.Second,
		URL:            "https://example.test",
		Unit:           domain.UnitGram,
		Currency:       "usd",
		PrimaryField:   "price",
		Tag:            "td",
		Selector:       "#price",
	}
}

func TestBuild_SelectsVariant(t *testing.T) {
	api, err := source.Build(validSpec(source.KindAPI), source.Deps{})
	require.NoError(t, err)
	assert.IsType(t, &source.APISource{}, api)

	markup, err := source.Build(validSpec(source.KindMarkup), source.Deps{})
	require.NoError(t, err)
	assert.IsType(t, &source.MarkupSource{}, markup)

	rendered, err := source.Build(validSpec(source.KindRendered), source.Deps{Browser: &fakeBrowser{}})
	require.NoError(t, err)
	assert.IsType(t, &source.RenderedSource{}, rendered)

	cfg := api.Config()
	assert.Equal(t, domain.SourceConfig{ID: "s1", Priority: 1, MaxAttempts: 3, AttemptTimeout: 10 * time.Second, RetryDelay: time.Second}, cfg)
}

func TestBuild_Rejects(t *testing.T) {
	tests := map[string]func(s *source.Spec){
		"unknown kind":      func(s *source.Spec) { s.Kind = "carrier-pigeon" },
		"zero attempts":     func(s *source.Spec) { s.MaxAttempts = 0 },
		"zero timeout":      func(s *source.Spec) { s.AttemptTimeout = 0 },
		"empty url":         func(s *source.Spec) { s.URL = "" },
		"unknown unit":      func(s *source.Spec) { s.Unit = "stone" },
		"api without field": func(s *source.Spec) { s.PrimaryField = "" },
		"empty id":          func(s *source.Spec) { s.ID = "" },
		"empty currency":    func(s *source.Spec) { s.Currency = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			spec := validSpec(source.KindAPI)
			mutate(&spec)
			_, err := source.Build(spec, source.Deps{})
			require.Error(t, err)
		})
	}

	_, err := source.Build(validSpec(source.KindRendered), source.Deps{})
	require.Error(t, err, "rendered source without a browser")
}
