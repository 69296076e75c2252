package plog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelString(t *testing.T) {
	for _, test := range []struct {
		in   Level
		want string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{NOTICE, "NOTICE"},
		{ERROR, "ERROR"},
		{EMERGENCY, "EMERGENCY"},
		{Level(99), "UNKNOWN"},
	} {
		assert.Equal(t, test.want, test.in.String())
	}
}

func TestSetGetLevel(t *testing.T) {
	defer SetLevel(GetLevel())
	SetLevel(ERROR)
	assert.Equal(t, ERROR, GetLevel())
	SetLevel(DEBUG)
	assert.Equal(t, DEBUG, GetLevel())
}

func TestLogfFiltered(t *testing.T) {
	defer SetLevel(GetLevel())
	SetLevel(ERROR)
	// Should not panic even though it is filtered out.
	Debugf("subject", "message %d", 1)
	Errorf(nil, "message %d", 2)
}
