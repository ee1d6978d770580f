// SPDX-License-Identifier: MIT

// Package algo is the computation-dispatch and result-lifecycle framework
// shared by every algorithm in algokit.
//
// An algorithm is three layers:
//
//	Algorithm (Batch or Streaming orchestrator + hooks)
//	   └─ Container (ContainerBase embedded by the algorithm's container)
//	        └─ Kernel (one instance, chosen once from a Registry)
//
// Registries are filled during package initialisation with every
// (Mode, FPType, Method) × CPUTier combination an algorithm package ships.
// At construction the container resolves the highest registered tier not
// above Environment.Tier() and owns the resulting kernel until Close.
//
// Failures never panic and are never retried: checks, allocators, containers
// and kernels append records to the algorithm's ErrorCollection, and the
// orchestrator aborts as soon as it is non-empty. Compute and FinalizeCompute
// return the collection as an error (nil when empty).
//
// Streaming algorithms (online, step1Local, step2Master) allocate and
// initialise their partial result exactly once and mutate it in place.
// A step2Master input holds a Collection of contributed partial results that
// the master reduces with one kernel call and then clears.
//
// Partial results, results and models implement Serializable and travel
// between processes through Marshal / Unmarshal (tagged CBOR records).
//
// Complexity:
//   - Dispatch: O(#tiers) once per algorithm.
//   - Orchestration: O(1) besides the checks and the kernel itself.
package algo
