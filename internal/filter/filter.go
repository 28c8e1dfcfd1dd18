package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/ailabhub/tres-guard/internal/store"
)

// Matches reports whether any keyword is a substring of the lowercased text.
// Keywords are expected to be lowercase already.
func Matches(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, k := range keywords {
		if k != "" && strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

// Normalize turns command arguments into the stored keyword form.
func Normalize(word string) string {
	return strings.ToLower(strings.Join(strings.Fields(word), " "))
}

type Filter struct {
	builtin []string
	store   store.Store
}

func New(builtin []string, s store.Store) *Filter {
	normalized := make([]string, 0, len(builtin))
	for _, k := range builtin {
		if k = Normalize(k); k != "" {
			normalized = append(normalized, k)
		}
	}
	return &Filter{
		builtin: normalized,
		store:   s,
	}
}

func (f *Filter) Add(ctx context.Context, word string) (string, bool, error) {
	word = Normalize(word)
	if word == "" {
		return "", false, fmt.Errorf("empty keyword")
	}
	added, err := f.store.AddKeyword(ctx, word)
	if err != nil {
		return word, false, fmt.Errorf("store.AddKeyword: %w", err)
	}
	return word, added, nil
}

func (f *Filter) Remove(ctx context.Context, word string) (string, bool, error) {
	word = Normalize(word)
	removed, err := f.store.RemoveKeyword(ctx, word)
	if err != nil {
		return word, false, fmt.Errorf("store.RemoveKeyword: %w", err)
	}
	return word, removed, nil
}

// List returns the built-in keywords followed by the custom ones.
func (f *Filter) List(ctx context.Context) ([]string, error) {
	custom, err := f.store.CustomKeywords(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.CustomKeywords: %w", err)
	}
	keywords := make([]string, 0, len(f.builtin)+len(custom))
	keywords = append(keywords, f.builtin...)
	return append(keywords, custom...), nil
}

// Check reports whether text contains a built-in or custom keyword. When the
// custom set cannot be read the built-in list is still applied.
func (f *Filter) Check(ctx context.Context, text string) (bool, error) {
	if Matches(text, f.builtin) {
		return true, nil
	}
	custom, err := f.store.CustomKeywords(ctx)
	if err != nil {
		return false, fmt.Errorf("store.CustomKeywords: %w", err)
	}
	return Matches(text, custom), nil
}
