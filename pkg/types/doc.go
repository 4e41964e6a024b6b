/*
Package types provides the data model and collaborator interfaces shared by the swiftclient packages.

# Architecture Overview

The client is layered so that each collaborator can be substituted in tests:

	┌─────────────────────────────────────────────┐
	│             Public Connection               │
	│                (pkg/swift)                  │
	└─────────────────────────────────────────────┘
	                      │
	┌─────────────────────────────────────────────┐
	│          Retrying Orchestrator              │
	│          (internal/orchestrator)            │
	└─────────────────────────────────────────────┘
	          │              │              │
	┌─────────┴───┐ ┌────────┴─────┐ ┌──────┴──────┐
	│Authenticator│ │  Transport   │ │  Resource   │
	│  (auth)     │ │ (transport)  │ │ operations  │
	└─────────────┘ └──────────────┘ └─────────────┘

# Core Interfaces

Transport and Conn:
A Transport opens a Conn bound to one scheme and host. A Conn performs single HTTP
exchanges and is discarded, never repaired, when the orchestrator decides it is unhealthy.

Authenticator:
Produces a storage URL and token pair. The orchestrator calls it whenever it holds no session.

Observer:
Receives every HTTP exchange. RetryObserver and CallObserver are optional extensions
for retry decisions and whole-call outcomes.

# Data Structures

Headers are always keyed in lower case. ResponseLog accumulates a ResponseRecord per
attempt and exposes the latest one directly.

Contents is a tagged union describing an upload body:

	types.BytesContents([]byte("hello"))          // fixed, always replayable
	types.SizedContents(file, 1024)               // known length, resettable if file is an io.Seeker
	types.StreamContents(pipeReader)              // unknown length, sent chunked
*/
package types
