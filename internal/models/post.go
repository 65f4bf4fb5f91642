// Resonate - Personalized Video Feed and Recommendation Service
// Copyright 2026 Resonate Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/resonatelabs/resonate

// Package models defines the data shapes shared across Resonate: posts and
// interactions as delivered by the upstream content API, and the standard
// HTTP response envelope.
//
// These are plain data declarations. Serialization happens at the API
// boundary (internal/api) and in the upstream client (internal/fetcher).
package models

import "strings"

// Topic groups posts under a named project.
type Topic struct {
	Name        string `json:"name"`
	ProjectCode string `json:"project_code"`
}

// Category is the upstream content category a post belongs to.
type Category struct {
	Name string `json:"name"`
}

// Post is a video post as delivered by the upstream content API.
//
// ViewCount feeds the popularity boost and the cold-start ranking, so it
// must be non-negative; the upstream guarantees this.
type Post struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Slug      string   `json:"slug,omitempty"`
	VideoLink string   `json:"video_link,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Category  Category `json:"category"`
	Topic     Topic    `json:"topic"`
	ViewCount int64    `json:"view_count"`
}

// ContentText derives the text that gets embedded for this post: title,
// tags, category and topic names joined by single spaces, empty parts
// skipped. The derivation is stable so embedding cache keys stay valid
// across rebuilds.
func (p *Post) ContentText() string {
	parts := make([]string, 0, 3+len(p.Tags))
	if p.Title != "" {
		parts = append(parts, p.Title)
	}
	for _, tag := range p.Tags {
		if tag != "" {
			parts = append(parts, tag)
		}
	}
	if p.Category.Name != "" {
		parts = append(parts, p.Category.Name)
	}
	if p.Topic.Name != "" {
		parts = append(parts, p.Topic.Name)
	}
	return strings.Join(parts, " ")
}

// InteractionKind is the type of signal a user left on a post.
type InteractionKind string

// Interaction kinds, ordered by ascending default weight.
const (
	KindView    InteractionKind = "view"
	KindLike    InteractionKind = "like"
	KindInspire InteractionKind = "inspire"
	KindRating  InteractionKind = "rating"
)

// Kinds lists every interaction kind the upstream exposes a list
// endpoint for.
func Kinds() []InteractionKind {
	return []InteractionKind{KindView, KindLike, KindInspire, KindRating}
}

// Interaction is a single user signal on a post, fetched per request and
// never persisted by Resonate.
//
// RatingValue is only meaningful when Kind is KindRating; the upstream
// reports it on a 0-10 scale and omits it for the other kinds.
type Interaction struct {
	Username    string          `json:"username"`
	PostID      int64           `json:"post_id"`
	Kind        InteractionKind `json:"kind"`
	RatingValue float64         `json:"rating_value,omitempty"`
}
