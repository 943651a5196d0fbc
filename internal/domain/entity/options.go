package entity

import "maps"

type SearchOptions struct {
	ForcedSearch          bool
	EnableSearchExtension bool
	SearchStrategy        string
}

// ChatOptions is immutable once built; use OptionsBuilder to derive a new value.
type ChatOptions struct {
	model             string
	temperature       *float32
	maxTokens         int
	enableThinking    *bool
	enableSearch      *bool
	incrementalOutput *bool
	searchOptions     *SearchOptions
	extra             map[string]any
}

func (o ChatOptions) Model() string { return o.model }

func (o ChatOptions) Temperature() (float32, bool) {
	if o.temperature == nil {
		return 0, false
	}
	return *o.temperature, true
}

func (o ChatOptions) MaxTokens() int { return o.maxTokens }

func (o ChatOptions) EnableThinking() (bool, bool)    { return deref(o.enableThinking) }
func (o ChatOptions) EnableSearch() (bool, bool)      { return deref(o.enableSearch) }
func (o ChatOptions) IncrementalOutput() (bool, bool) { return deref(o.incrementalOutput) }

func (o ChatOptions) SearchOptions() (SearchOptions, bool) {
	if o.searchOptions == nil {
		return SearchOptions{}, false
	}
	return *o.searchOptions, true
}

// Extra returns a copy of the opaque vendor key/value bag.
func (o ChatOptions) Extra() map[string]any {
	return maps.Clone(o.extra)
}

// ToBuilder starts a builder seeded with o, for per-request overrides.
func (o ChatOptions) ToBuilder() *OptionsBuilder {
	b := &OptionsBuilder{opts: o}
	b.opts.extra = maps.Clone(o.extra)
	return b
}

type OptionsBuilder struct {
	opts ChatOptions
}

func NewOptionsBuilder() *OptionsBuilder {
	return &OptionsBuilder{}
}

func (b *OptionsBuilder) Model(model string) *OptionsBuilder {
	b.opts.model = model
	return b
}

func (b *OptionsBuilder) Temperature(t float32) *OptionsBuilder {
	b.opts.temperature = &t
	return b
}

func (b *OptionsBuilder) MaxTokens(n int) *OptionsBuilder {
	b.opts.maxTokens = n
	return b
}

func (b *OptionsBuilder) EnableThinking(v bool) *OptionsBuilder {
	b.opts.enableThinking = &v
	return b
}

func (b *OptionsBuilder) EnableSearch(v bool) *OptionsBuilder {
	b.opts.enableSearch = &v
	return b
}

func (b *OptionsBuilder) IncrementalOutput(v bool) *OptionsBuilder {
	b.opts.incrementalOutput = &v
	return b
}

func (b *OptionsBuilder) SearchOptions(s SearchOptions) *OptionsBuilder {
	b.opts.searchOptions = &s
	return b
}

// ExtraBody merges kv into the vendor bag. Later calls win on key collisions.
func (b *OptionsBuilder) ExtraBody(kv map[string]any) *OptionsBuilder {
	if b.opts.extra == nil {
		b.opts.extra = make(map[string]any, len(kv))
	}
	maps.Copy(b.opts.extra, kv)
	return b
}

func (b *OptionsBuilder) Build() ChatOptions {
	out := b.opts
	out.extra = maps.Clone(b.opts.extra)
	return out
}

func deref(v *bool) (bool, bool) {
	if v == nil {
		return false, false
	}
	return *v, true
}
