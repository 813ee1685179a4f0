package snowflake

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"strconv"
)

// Assigner decides which (datacenter, worker) slot a process occupies.
//
// The built-in strategies are best-effort: neither the process-ID nor the
// random strategy detects collisions between live processes. Deployments
// running more than 32 concurrent workers per datacenter must supply an
// external coordinator through their own Assigner.
type Assigner interface {
	Assign() (datacenterID, workerID int64, err error)
}

// Static binds a fixed slot, for deployments with external coordination.
type Static struct {
	DatacenterID int64
	WorkerID     int64
}

// Assign returns the configured slot.
func (s Static) Assign() (int64, int64, error) {
	return s.DatacenterID, s.WorkerID, nil
}

// Env reads DATACENTER_ID and WORKER_ID from the environment. A missing
// worker ID falls back to the process ID modulo 32; a missing datacenter ID
// falls back to a random slot.
type Env struct{}

// Assign resolves the slot from the environment with best-effort fallbacks.
func (Env) Assign() (int64, int64, error) {
	workerID, ok, err := envSlot("WORKER_ID")
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		workerID = int64(os.Getpid()) % (MaxWorkerID + 1)
	}

	datacenterID, ok, err := envSlot("DATACENTER_ID")
	if err != nil {
		return 0, 0, err
	}
	if !ok {
		datacenterID, err = randomSlot(MaxDatacenterID)
		if err != nil {
			return 0, 0, err
		}
	}

	return datacenterID, workerID, nil
}

func envSlot(name string) (int64, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false, nil
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("snowflake: %s=%q is not an integer between 0 and %d", name, raw, MaxWorkerID)
	}
	if v < 0 || v > MaxWorkerID {
		return 0, false, fmt.Errorf("snowflake: %s must be an integer between 0 and %d", name, MaxWorkerID)
	}
	return v, true, nil
}

func randomSlot(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max+1))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}
