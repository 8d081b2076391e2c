// Package annotation holds the key/value records attached to transform
// outputs and the stores that keep them.
package annotation

import (
	"fmt"
	"strconv"
	"strings"

	"hyperstacks/pkg/expression"
)

// Keys emitted by the transforms.
const (
	SliceChannel = "slice.c"
	SliceDepth   = "slice.z"
	SliceFrame   = "slice.t"

	SplitPrefix = "split."

	FlattenChannel = "flatten.c"
	FlattenDepth   = "flatten.z"
	FlattenFrame   = "flatten.t"
	FlattenIndex   = "flatten.index"
)

// Annotation is one key/value string record.
type Annotation struct {
	Key   string `json:"key" yaml:"key" cbor:"1,keyasint"`
	Value string `json:"value" yaml:"value" cbor:"2,keyasint"`
}

// New builds an annotation, formatting value with %v.
func New(key string, value any) Annotation {
	return Annotation{Key: key, Value: fmt.Sprint(value)}
}

// Ints builds an annotation whose value is a comma separated integer list.
func Ints(key string, values []int) Annotation {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return Annotation{Key: key, Value: strings.Join(parts, ",")}
}

func (a Annotation) String() string { return a.Key + "=" + a.Value }

// Set is an ordered list of annotations. Later entries win on lookup.
type Set []Annotation

// Get returns the last value stored under key.
func (s Set) Get(key string) (string, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Key == key {
			return s[i].Value, true
		}
	}
	return "", false
}

// Env binds every annotation as "#key" in a copy of env, the form
// expressions use to read user metadata.
func (s Set) Env(env expression.Env) expression.Env {
	out := env.Clone()
	for _, a := range s {
		out.SetString("#"+a.Key, a.Value)
	}
	return out
}

// Parse reads "key=value".
func Parse(s string) (Annotation, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return Annotation{}, fmt.Errorf("annotation %q: expected key=value", s)
	}
	return Annotation{Key: key, Value: value}, nil
}
