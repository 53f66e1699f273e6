// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep

import (
	"fmt"
	"net"
	"strings"
)

// parseURL maps tcp://host:port, tcp4://, tcp6:// or a bare host:port to
// a network and address for package net. A host of "*" means any address.
func parseURL(url string) (network, addr string, err error) {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		scheme, rest = "tcp", url
	}
	switch scheme {
	case "tcp", "tcp4", "tcp6":
	default:
		return "", "", fmt.Errorf("%w: unsupported scheme %q", ErrAddress, scheme)
	}
	host, port, err := net.SplitHostPort(rest)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrAddress, err)
	}
	if port == "" {
		return "", "", fmt.Errorf("%w: missing port in %q", ErrAddress, url)
	}
	if host == "*" {
		host = ""
	}
	return scheme, net.JoinHostPort(host, port), nil
}
