// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client assembles the offline-first client: the local record store,
// the server adapter, envelope crypto, the sync coordinator and its
// scheduler. The host shell talks to the store for CRUD and to the App for
// sync control.
package client
