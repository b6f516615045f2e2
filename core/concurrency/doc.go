// Package concurrency
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Locking primitives for the pools and rings of hioload-mem: a padded
// test-and-test-and-set SpinLock whose wait policy (busy spin, yield, park)
// is fixed at construction, plus a platform probe for an attached debugger
// used to pick a yielding default during interactive debugging.
package concurrency
