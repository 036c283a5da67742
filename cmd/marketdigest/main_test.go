package main

import "testing"

func TestSelectPipelines(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name           string
		all, news, arb bool
		wantNews       bool
		wantArb        bool
	}{
		{name: "no selector runs both", wantNews: true, wantArb: true},
		{name: "all runs both", all: true, wantNews: true, wantArb: true},
		{name: "news only", news: true, wantNews: true, wantArb: false},
		{name: "arb only", arb: true, wantNews: false, wantArb: true},
		{name: "news and arb", news: true, arb: true, wantNews: true, wantArb: true},
		{name: "all overrides single selector", all: true, news: true, wantNews: true, wantArb: true},
	}
	for _, tc := range cases {
		gotNews, gotArb := selectPipelines(tc.all, tc.news, tc.arb)
		if gotNews != tc.wantNews || gotArb != tc.wantArb {
			t.Fatalf("%s: got news=%v arb=%v, want news=%v arb=%v",
				tc.name, gotNews, gotArb, tc.wantNews, tc.wantArb)
		}
	}
}

func TestRootCommandRegistersSelectorFlags(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"all", "news", "arb", "days", "mail", "daemon"} {
		if rootCmd.Flags().Lookup(name) == nil {
			t.Fatalf("flag --%s not registered", name)
		}
	}
}
