// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rep_test

import (
	"testing"

	"code.hybscloud.com/rep"
)

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]rep.Decision{
		"":          rep.Escalate,
		"escalate":  rep.Escalate,
		"Retry":     rep.Retry,
		" recreate": rep.Recreate,
	} {
		got, err := rep.ParsePolicy(in)
		if err != nil {
			t.Fatalf("ParsePolicy(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParsePolicy(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := rep.ParsePolicy("ignore"); err == nil {
		t.Fatal("ParsePolicy accepted an unknown policy")
	}
}

func TestDecisionIsPolicy(t *testing.T) {
	var fp rep.FailurePolicy = rep.Recreate
	if d := fp.Decide(3, rep.Result{Kind: rep.OpRecv}); d != rep.Recreate {
		t.Fatalf("Decide got %s", d)
	}
	if rep.Decision(7).String() != "decision(7)" {
		t.Fatalf("got %q", rep.Decision(7).String())
	}
}

func TestPolicyFunc(t *testing.T) {
	fp := rep.PolicyFunc(func(worker int, res rep.Result) rep.Decision {
		if res.Kind == rep.OpSend {
			return rep.Retry
		}
		return rep.Escalate
	})
	if d := fp.Decide(0, rep.Result{Kind: rep.OpSend}); d != rep.Retry {
		t.Fatalf("send failure got %s", d)
	}
	if d := fp.Decide(0, rep.Result{Kind: rep.OpRecv}); d != rep.Escalate {
		t.Fatalf("recv failure got %s", d)
	}
}
