package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_StartsInChat(t *testing.T) {
	r := NewRouter()
	assert.Equal(t, State{View: Chat}, r.Current())
	assert.Equal(t, "", r.Current().SelectedID())
}

func TestRouter_OpenAndBack(t *testing.T) {
	r := NewRouter()

	st, err := r.OpenHotel("h1")
	require.NoError(t, err)
	assert.Equal(t, Hotel, st.View)
	assert.Equal(t, "h1", st.SelectedID())

	st, err = r.OpenTour("t9")
	require.NoError(t, err)
	assert.Equal(t, Tour, st.View)
	assert.Equal(t, "t9", st.SelectedID())

	st = r.Back()
	assert.Equal(t, State{View: Chat}, st)
	assert.Equal(t, st, r.Current())
}

func TestRouter_RejectsEmptySelection(t *testing.T) {
	r := NewRouter()
	_, err := r.OpenTour("t1")
	require.NoError(t, err)

	st, err := r.OpenHotel("   ")
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, Tour, st.View, "state is unchanged")

	_, err = r.OpenTour("")
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, "t1", r.Current().TourID)
}
