package state

import (
	"strconv"
	"strings"
)

// Type tags an element's kind.
type Type string

const (
	TypeSelection Type = "selection"
	TypeRectangle Type = "rectangle"
	TypeEllipse   Type = "ellipse"
	TypeDiamond   Type = "diamond"
	TypeLine      Type = "line"
	TypeArrow     Type = "arrow"
	TypeDraw      Type = "draw"
	TypeText      Type = "text"
)

// IsLinear reports whether elements of this type are described by an origin
// plus relative vertices rather than a bounding box.
func (t Type) IsLinear() bool {
	return t == TypeLine || t == TypeArrow || t == TypeDraw
}

// Valid reports whether t is a known element type.
func (t Type) Valid() bool {
	switch t {
	case TypeSelection, TypeRectangle, TypeEllipse, TypeDiamond,
		TypeLine, TypeArrow, TypeDraw, TypeText:
		return true
	}
	return false
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Style holds the visual attributes shared by every element type.
type Style struct {
	StrokeColor     string  `json:"strokeColor"`
	BackgroundColor string  `json:"backgroundColor"`
	FillStyle       string  `json:"fillStyle"`
	StrokeWidth     float64 `json:"strokeWidth"`
	Roughness       float64 `json:"roughness"`
	Opacity         float64 `json:"opacity"`
}

// Transparent is the background color of an unfilled shape.
const Transparent = "transparent"

// DefaultStyle is applied to elements created without an explicit style.
var DefaultStyle = Style{
	StrokeColor:     "#000000",
	BackgroundColor: Transparent,
	FillStyle:       "hachure",
	StrokeWidth:     1,
	Roughness:       1,
	Opacity:         100,
}

// DefaultFont is the font descriptor given to new text elements.
const DefaultFont = "20px Virgil"

// FontSize reads the pixel size out of a "20px Virgil" descriptor.
func FontSize(font string) float64 {
	head, _, _ := strings.Cut(font, "px")
	if v, err := strconv.ParseFloat(strings.TrimSpace(head), 64); err == nil && v > 0 {
		return v
	}
	return 20
}

// Element is one drawable object of a scene.
//
// Version grows by one on every local mutation and never decreases for a
// given ID. VersionNonce is regenerated on every mutation and only orders two
// copies that share a version.
type Element struct {
	ID     string  `json:"id"`
	Type   Type    `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Points []Point `json:"points,omitempty"`
	Style
	Text         string `json:"text,omitempty"`
	Font         string `json:"font,omitempty"`
	Seed         int64  `json:"seed"`
	Version      int64  `json:"version"`
	VersionNonce int64  `json:"versionNonce"`
	IsDeleted    bool   `json:"isDeleted"`
}

// Clone returns a deep copy of e.
func (e Element) Clone() Element {
	if e.Points != nil {
		pts := make([]Point, len(e.Points))
		copy(pts, e.Points)
		e.Points = pts
	}
	return e
}

// Stripped returns the persistence form of e: versioning fields are zeroed
// since they only matter for ordering edits between peers.
func (e Element) Stripped() Element {
	e = e.Clone()
	e.Version = 0
	e.VersionNonce = 0
	return e
}

// View is the part of the editor state captured alongside the scene in
// history entries.
type View struct {
	ScrollX  float64  `json:"scrollX"`
	ScrollY  float64  `json:"scrollY"`
	Zoom     float64  `json:"zoom"`
	Selected []string `json:"selected,omitempty"`
}
