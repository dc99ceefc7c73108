// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the interactive client application runtime.
//
// It wires the terminal command loop, the session credential flows
// (register, login, quick unlock, recovery) and the background sync
// engine into a single process lifecycle.
package client
