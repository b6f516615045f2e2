// Package staging
// Author: momentics <momentics@gmail.com>
//
// Per-frame staging memory for render batches.
//
// A Context owns a fixed set of frames in flight. Each frame carries an
// Arena that producers reserve records from concurrently, plus scratch
// byte arrays rented from a shared ArrayPool. Frames are recorded, submitted
// and then retired when the consumer signals completion, which rewinds the
// arena and runs any work deferred until that frame.
package staging
