package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageRequestOffset(t *testing.T) {
	cases := []struct {
		name string
		req  PageRequest
		want int
	}{
		{"first page", PageRequest{Page: 1, PerPage: 10}, 0},
		{"third page", PageRequest{Page: 3, PerPage: 5}, 10},
		{"unset page", PageRequest{PerPage: 5}, 0},
		{"unset per page", PageRequest{Page: 4}, 0},
		{"saturates", PageRequest{Page: 2305843009213693953, PerPage: 8}, math.MaxInt},
		{"saturates at max page", PageRequest{Page: math.MaxInt, PerPage: 2}, math.MaxInt},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.req.Offset())
		})
	}
}
