package search

import (
	"testing"

	"github.com/grailbio/ham/germline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertRunLengths(t *testing.T) {
	left, right := insertRunLengths([]string{"insert", "insert", "IGHV1-2*01_3", "IGHV1-2*01_4", "insert"})
	assert.Equal(t, 2, left)
	assert.Equal(t, 1, right)
}

func TestInsertRunLengthsAllInsert(t *testing.T) {
	left, right := insertRunLengths([]string{"insert", "insert", "insert"})
	assert.Equal(t, 3, left)
	assert.Equal(t, 0, right)
}

func TestInsertRunLengthsNoInsert(t *testing.T) {
	left, right := insertRunLengths([]string{"IGHV1-2*01_0", "IGHV1-2*01_1"})
	assert.Equal(t, 0, left)
	assert.Equal(t, 0, right)
}

func TestComputeErosionsLenOrdinary(t *testing.T) {
	names := []string{"insert", "IGHV1-2*01_3", "IGHV1-2*01_4", "IGHV1-2*01_5"}
	left, right, err := computeErosionsLen(names, "IGHV1-2*01", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, left)
	assert.Equal(t, 10-5-1, right)
}

func TestComputeErosionsLenAllInsert(t *testing.T) {
	names := []string{"insert", "insert", "insert"}
	left, right, err := computeErosionsLen(names, "IGHV1-2*01", 9)
	require.NoError(t, err)
	assert.Equal(t, 4, left)
	assert.Equal(t, 5, right)
}

func TestComputeErosionsLenUnparseable(t *testing.T) {
	names := []string{"IGHV1-2*01-no-position"}
	_, _, err := computeErosionsLen(names, "IGHV1-2*01", 10)
	require.Error(t, err)
	var target *StateNameUnparseable
	assert.ErrorAs(t, err, &target)
}

func TestInsertionLabelAndSide(t *testing.T) {
	assert.Equal(t, "vd", insertionLabel(germline.V))
	assert.Equal(t, Left, insertionSide("vd"))
	assert.Equal(t, "dj", insertionLabel(germline.D))
	assert.Equal(t, Left, insertionSide("dj"))
	assert.Equal(t, "jf", insertionLabel(germline.J))
	assert.Equal(t, Right, insertionSide("jf"))
}
