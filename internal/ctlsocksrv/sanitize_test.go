package ctlsocksrv

import (
	"testing"
)

func TestSanitizePath(t *testing.T) {
	testCases := [][]string{
		{"", ""},
		{".", ""},
		{"/", ""},
		{"foo", "foo"},
		{"/foo", "foo"},
		{"foo/", "foo"},
		{"/foo/", "foo"},
		{"/foo/./foo", "foo/foo"},
		{"./", ""},
		{"..", ""},
		{"foo/../..", ""},
		{"foo/../../aaaaaa", ""},
		{"/foo/../../aaaaaa", ""},
		{"/////", ""},
		{"con:", "con:"},
		{"con:/x/../y", "con:y"},
		{"con:..", ""},
		{"a/b:c", "a/b:c"},
		{":x", ":x"},
	}
	for _, tc := range testCases {
		res := SanitizePath(tc[0])
		if res != tc[1] {
			t.Errorf("%q: got %q, want %q", tc[0], res, tc[1])
		}
	}
}
