// Copyright (c) 2025 suprsokr
// SPDX-License-Identifier: MIT

package main

func main() {
	execute()
}
