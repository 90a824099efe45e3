// Package mono provides a monotonic clock source that never observes a
// wall-clock step; nlog stamps each target's last write with it.
/*
 * Copyright (c) 2023, NVIDIA CORPORATION. All rights reserved.
 */
package mono

import "time"

var start = time.Now()

// NanoTime returns nanoseconds elapsed since package init, strictly
// increasing regardless of wall-clock adjustments.
func NanoTime() int64 { return int64(time.Since(start)) }

// Since is a convenience wrapper returning the duration elapsed since a
// NanoTime reading.
func Since(t int64) time.Duration { return time.Duration(NanoTime() - t) }
