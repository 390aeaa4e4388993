// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides the nucleotide byte-array cleaning helpers the
// search engine's input path relies on: capitalizing and replacing
// non-ACGT characters, and detecting their presence. The teacher package
// this is trimmed from also carried SIMD-accelerated packing/unpacking and
// quality-score helpers for .bam/.fastq records; this module has no binary
// sequence encoding or FASTQ path, so only the two table-lookup functions
// every germline and query sequence actually flows through are kept.
package biosimd
