// Package heap
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// An array-backed binary min-heap ordered by a caller-supplied three-way
// comparator. Staging uses it to run deferred work in frame order.
package heap
