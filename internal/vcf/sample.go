package vcf

import "fmt"

// Sample holds one sample column of a variant line, keyed by FORMAT key.
type Sample struct {
	name   string
	fields map[string]string
}

// Name returns the sample name from the #CHROM header line.
func (s Sample) Name() string {
	return s.name
}

// Get returns the raw value for a FORMAT key.
func (s Sample) Get(key string) (string, error) {
	v, ok := s.fields[key]
	if !ok {
		return "", fmt.Errorf("format key %q in sample %q: %w", key, s.name, ErrKeyNotFound)
	}
	return v, nil
}

// Value returns the raw value for a FORMAT key, or "" if absent.
func (s Sample) Value(key string) string {
	return s.fields[key]
}

// Len returns the number of FORMAT values present in the sample.
func (s Sample) Len() int {
	return len(s.fields)
}

// SampleList is the ordered set of samples of one variant line.
type SampleList struct {
	samples []Sample
	byName  map[string]int
}

func newSampleList(samples []Sample) SampleList {
	byName := make(map[string]int, len(samples))
	for i, s := range samples {
		byName[s.name] = i
	}
	return SampleList{samples: samples, byName: byName}
}

// Len returns the number of samples.
func (l SampleList) Len() int {
	return len(l.samples)
}

// At returns the sample at header position i.
func (l SampleList) At(i int) (Sample, error) {
	if i < 0 || i >= len(l.samples) {
		return Sample{}, fmt.Errorf("sample index %d of %d: %w", i, len(l.samples), ErrKeyNotFound)
	}
	return l.samples[i], nil
}

// ByName returns the sample with the given header name.
func (l SampleList) ByName(name string) (Sample, error) {
	i, ok := l.byName[name]
	if !ok {
		return Sample{}, fmt.Errorf("sample %q: %w", name, ErrKeyNotFound)
	}
	return l.samples[i], nil
}

// Names returns the sample names in header order.
func (l SampleList) Names() []string {
	names := make([]string, len(l.samples))
	for i, s := range l.samples {
		names[i] = s.name
	}
	return names
}
