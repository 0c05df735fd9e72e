package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestReadAnnotations(t *testing.T) {
	csv := "ImageName,Fovea_X,Fovea_Y\n" +
		"n0001.jpg,1062.5,1030\n" +
		"g0001,  980, 1001.25\n"

	got, err := ReadAnnotations(strings.NewReader(csv), "train.csv")
	require.NoError(t, err)

	want := []Annotation{
		{ImageName: "n0001.jpg", X: 1062.5, Y: 1030},
		{ImageName: "g0001", X: 980, Y: 1001.25},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("annotations mismatch (-want +got):\n%s", diff)
	}
}

func TestReadAnnotations_HeaderVariants(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"legacy ImgName", "ID,ImgName,Fovea_X,Fovea_Y\n1,a.jpg,10,20\n"},
		{"reordered", "Fovea_Y,ImageName,Fovea_X\n20,a.jpg,10\n"},
		{"byte order mark", "\ufeffImageName,Fovea_X,Fovea_Y\na.jpg,10,20\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadAnnotations(strings.NewReader(tt.csv), "t.csv")
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, Annotation{ImageName: "a.jpg", X: 10, Y: 20}, got[0])
		})
	}
}

func TestReadAnnotations_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantMsg string
	}{
		{"empty", "", "empty table"},
		{"missing name column", "Name,Fovea_X,Fovea_Y\na,1,2\n", "missing ImageName"},
		{"missing y column", "ImageName,Fovea_X\na,1\n", "missing Fovea_Y"},
		{"empty name", "ImageName,Fovea_X,Fovea_Y\n ,1,2\n", "missing image name"},
		{"non-numeric", "ImageName,Fovea_X,Fovea_Y\na.jpg,abc,2\n", "Fovea_X"},
		{"nan", "ImageName,Fovea_X,Fovea_Y\na.jpg,1,NaN\n", "not a finite number"},
		{"inf", "ImageName,Fovea_X,Fovea_Y\na.jpg,+Inf,1\n", "not a finite number"},
		{"blank coordinate", "ImageName,Fovea_X,Fovea_Y\na.jpg,,1\n", "empty coordinate"},
		{"ragged row", "ImageName,Fovea_X,Fovea_Y\na.jpg,1\n", "t.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadAnnotations(strings.NewReader(tt.csv), "t.csv")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidAnnotation)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestReadAnnotations_ReportsLine(t *testing.T) {
	csv := "ImageName,Fovea_X,Fovea_Y\na.jpg,1,2\nb.jpg,x,2\n"
	_, err := ReadAnnotations(strings.NewReader(csv), "t.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t.csv:3")
	assert.Contains(t, err.Error(), "b.jpg")
}

func TestLoadAnnotations_ConcatenatesWithoutDedup(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.csv", "ImageName,Fovea_X,Fovea_Y\nn0001.jpg,1,2\nn0002.jpg,3,4\n")
	b := writeFile(t, dir, "b.csv", "ImgName,Fovea_X,Fovea_Y\nn0001.jpg,5,6\n")

	got, err := LoadAnnotations(a, b)
	require.NoError(t, err)

	want := []Annotation{
		{ImageName: "n0001.jpg", X: 1, Y: 2},
		{ImageName: "n0002.jpg", X: 3, Y: 4},
		{ImageName: "n0001.jpg", X: 5, Y: 6},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("annotations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"n0001.jpg", "n0002.jpg", "n0001.jpg"}, Names(got))
}

func TestLoadAnnotations_Errors(t *testing.T) {
	_, err := LoadAnnotations()
	assert.ErrorIs(t, err, ErrInvalidAnnotation)

	_, err = LoadAnnotations(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	bad := writeFile(t, t.TempDir(), "bad.csv", "ImageName,Fovea_X,Fovea_Y\na.jpg,1,oops\n")
	_, err = LoadAnnotations(bad)
	assert.ErrorIs(t, err, ErrInvalidAnnotation)
}
