package process

import (
	"errors"
	"testing"
)

func TestKillTree_InvalidPID(t *testing.T) {
	t.Parallel()

	for _, pid := range []int{0, -1} {
		if err := KillTree(pid); !errors.Is(err, ErrInvalidPID) {
			t.Errorf("KillTree(%d) = %v, want ErrInvalidPID", pid, err)
		}
	}
}

func TestKillTree_GoneProcess(t *testing.T) {
	t.Parallel()

	if err := KillTree(999999999); err != nil {
		t.Errorf("KillTree(unused pid) = %v, want nil", err)
	}
}
