// Package partition derives stable keys for serialising work on one
// (learner, course) pair across processes.
package partition

import "hash/fnv"

// LockKey returns the advisory lock key serialising aggregate commits for one
// (learner, course) pair. The separator byte keeps ("ab","c") and ("a","bc")
// apart.
func LockKey(learnerID, courseID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(learnerID))
	h.Write([]byte{0})
	h.Write([]byte(courseID))
	return int64(h.Sum64())
}
