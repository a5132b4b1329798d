package outline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleListing() *Listing {
	intro := NewEntry("Introduction", 1).WithPage("1")
	motivation := NewEntry("Motivation", 2).WithPage("2")
	intro.AddChild(motivation)

	methods := NewEntry("Methods", 1).WithPage("5")
	setup := NewEntry("Setup", 2)
	detail := NewEntry("Calibration", 3).WithPage("7")
	setup.AddChild(detail)
	methods.AddChild(setup)

	listing := NewListing()
	listing.Entries = []*Entry{intro, methods}
	return listing
}

func TestListing_FlattenPaths(t *testing.T) {
	flat := sampleListing().Flatten()
	require.Len(t, flat, 5)

	assert.Equal(t, []string{"Introduction"}, flat[0].Path)
	assert.Equal(t, []string{"Introduction", "Motivation"}, flat[1].Path)
	assert.Equal(t, []string{"Methods", "Setup", "Calibration"}, flat[4].Path)
	require.NotNil(t, flat[4].Page)
	assert.Equal(t, "7", *flat[4].Page)
}

func TestListing_EntriesAtLevel(t *testing.T) {
	listing := sampleListing()

	level2 := listing.EntriesAtLevel(2)
	require.Len(t, level2, 2)
	assert.Equal(t, "Motivation", level2[0].Title)
	assert.Equal(t, "Setup", level2[1].Title)

	assert.Empty(t, listing.EntriesAtLevel(9))
}

func TestListing_MaxDepth(t *testing.T) {
	assert.Equal(t, 3, sampleListing().MaxDepth())
	assert.Equal(t, 0, NewListing().MaxDepth())
}

func TestEntry_WithCopies(t *testing.T) {
	base := NewEntry("Chapter", 1)
	paged := base.WithPage("10")

	assert.Nil(t, base.Page)
	require.NotNil(t, paged.Page)
	assert.Equal(t, "10", *paged.Page)

	typed := paged.WithType("chapter")
	require.NotNil(t, typed.EntryType)
	assert.Equal(t, "chapter", *typed.EntryType)
	assert.Nil(t, paged.EntryType)
}

func TestNewListing_Defaults(t *testing.T) {
	listing := NewListing()
	assert.Equal(t, 1.0, listing.Confidence)
	assert.Empty(t, listing.Entries)
}

func TestSchema_Shape(t *testing.T) {
	schema := Schema()
	assert.Equal(t, "object", schema["type"])
	assert.Contains(t, schema, "definitions")
	assert.Equal(t, []any{"entries", "confidence"}, schema["required"])
}
