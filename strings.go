package main

/*
#include <stdlib.h>
*/
import "C"

import "strings"

// creditsText mirrors credits.cpp: third-party notices bundled into the
// plugin binary and surfaced to end users through the host's about page.
const creditsText = `Retrojsvice (c) 2020-2021 Topi Talvitie
Licensed under the MIT license.

This program uses the following third-party components:
  - Go standard library and toolchain (BSD-3-Clause)
  - go.uber.org/zap (MIT)
  - github.com/spf13/cobra (Apache-2.0)
  - github.com/google/uuid (BSD-3-Clause)
  - github.com/gorilla/websocket (BSD-2-Clause)
  - github.com/mattn/go-sqlite3 (MIT)
  - cloud.google.com/go/storage (Apache-2.0)
  - golang.org/x/time (BSD-3-Clause)
`

// setOutString allocates a C string for val and writes it through out,
// mirroring vice_plugin_api.cpp's setOutString helper. out may be nil, in
// which case the value is simply discarded.
func setOutString(out **C.char, val string) {
	if out != nil {
		*out = C.CString(val)
	}
}

// joinComma renders a quality option list as the single comma-separated
// string the C ABI's windowQualitySelectorQuery out-param expects.
func joinComma(items []string) string {
	return strings.Join(items, ",")
}
