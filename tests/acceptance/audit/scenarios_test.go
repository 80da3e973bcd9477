package audit_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sinKettu/cruster-audit/internal/audit/engine"
	"github.com/sinKettu/cruster-audit/internal/audit/expr"
	"github.com/sinKettu/cruster-audit/internal/audit/rule"
)

var _ = Describe("Audit rule engine", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("reports the header length probe as a success", func() {
		r := &rule.Rule{
			ID: "header-length-probe",
			Entries: []rule.Entry{
				{Kind: rule.KindWatch, Watch: &rule.Watch{ID: "w0", Part: "body", Pattern: `X=(\w+)`}},
				{
					Kind: rule.KindFind,
					Find: &rule.Find{
						ID:      "f0",
						LookFor: "any",
						Exec: []rule.RawExpr{
							{
								Name:          "L",
								OperationName: "len",
								Args:          []expr.RawArg{expr.NewRawArg("reference", "0.response.headers.content-type")},
							},
							{
								Name:          "B",
								OperationName: ">",
								Args:          []expr.RawArg{expr.NewRawArg("variable", "L"), expr.NewRawArg("int", "0")},
							},
						},
					},
				},
			},
		}
		Expect(r.CheckUp()).To(Succeed())

		pair := newPair(0, "/", "no match here", 200, "")
		driver := engine.New(&stubClient{}, nil, nil)

		result, err := driver.Run(ctx, r, pair)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.FoundAnything).To(BeTrue())
	})

	Describe("replace and detect", func() {
		buildRule := func() *rule.Rule {
			r := &rule.Rule{
				ID: "replace-and-detect",
				Entries: []rule.Entry{
					{Kind: rule.KindWatch, Watch: &rule.Watch{ID: "w0", Part: "path", Pattern: `id=(\d+)`}},
					{Kind: rule.KindChange, Change: &rule.Change{ID: "c0", WatchID: "0", Placement: "replace", Values: []string{"-1"}}},
					{Kind: rule.KindSend, Send: &rule.Send{ID: "", Apply: "0"}},
					{
						Kind: rule.KindFind,
						Find: &rule.Find{
							ID:      "f0",
							LookFor: "any",
							Exec: []rule.RawExpr{
								{
									Name:          "S",
									OperationName: "=",
									Args:          []expr.RawArg{expr.NewRawArg("reference", "1.response.status"), expr.NewRawArg("int", "500")},
								},
							},
						},
					},
				},
			}
			Expect(r.CheckUp()).To(Succeed())
			return r
		}

		It("succeeds when the injected client returns status 500", func() {
			r := buildRule()
			pair := newPair(1, "/item?id=42", "", 200, "")
			driver := engine.New(&stubClient{status: 500}, nil, nil)

			result, err := driver.Run(ctx, r, pair)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FoundAnything).To(BeTrue())
		})

		It("fails when the injected client returns status 200", func() {
			r := buildRule()
			pair := newPair(1, "/item?id=42", "", 200, "")
			driver := engine.New(&stubClient{status: 200}, nil, nil)

			result, err := driver.Run(ctx, r, pair)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FoundAnything).To(BeFalse())
		})
	})

	It("extracts a named group as evidence once the gating find succeeds", func() {
		r := &rule.Rule{
			ID: "regex-evidence",
			Entries: []rule.Entry{
				{Kind: rule.KindWatch, Watch: &rule.Watch{ID: "w0", Part: "path", Pattern: `id=(\d+)`}},
				{Kind: rule.KindChange, Change: &rule.Change{ID: "c0", WatchID: "0", Placement: "replace", Values: []string{"-1"}}},
				{Kind: rule.KindSend, Send: &rule.Send{ID: "", Apply: "0"}},
				{
					Kind: rule.KindFind,
					Find: &rule.Find{
						ID:      "f0",
						LookFor: "any",
						Exec: []rule.RawExpr{
							{
								Name:          "S",
								OperationName: "=",
								Args:          []expr.RawArg{expr.NewRawArg("reference", "1.response.status"), expr.NewRawArg("int", "500")},
							},
						},
					},
				},
				{
					Kind: rule.KindGet,
					Get: &rule.Get{
						From:      "1",
						IfSucceed: "0",
						Side:      "response",
						Extract:   "group",
						GroupName: "token",
						Pattern:   `token=(?P<token>\w+)`,
					},
				},
			},
		}
		Expect(r.CheckUp()).To(Succeed())

		pair := newPair(1, "/item?id=42", "", 200, "")
		driver := engine.New(&stubClient{status: 500, body: "response carries token=abc in the clear"}, nil, nil)

		result, err := driver.Run(ctx, r, pair)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Evidence).To(HaveLen(1))
		Expect(string(result.Evidence[0].Bytes)).To(Equal("abc"))
	})

	It("resolves a symbolic send id to the storage slot of that send action", func() {
		r := &rule.Rule{
			ID: "symbolic-send-id",
			Entries: []rule.Entry{
				{Kind: rule.KindWatch, Watch: &rule.Watch{ID: "w0", Part: "path", Pattern: `id=(\d+)`}},
				{Kind: rule.KindChange, Change: &rule.Change{ID: "c0", WatchID: "0", Placement: "replace", Values: []string{"-1"}}},
				{Kind: rule.KindSend, Send: &rule.Send{ID: "probe", Apply: "0"}},
				{
					Kind: rule.KindFind,
					Find: &rule.Find{
						ID:      "f0",
						LookFor: "any",
						Exec: []rule.RawExpr{
							{
								Name:          "F",
								OperationName: "=",
								Args:          []expr.RawArg{expr.NewRawArg("reference", "probe.response.body"), expr.NewRawArg("string", "ok")},
							},
						},
					},
				},
			},
		}
		Expect(r.CheckUp()).To(Succeed())

		pair := newPair(1, "/item?id=42", "", 200, "")
		driver := engine.New(&stubClient{status: 200, body: "ok"}, nil, nil)

		result, err := driver.Run(ctx, r, pair)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.FoundAnything).To(BeTrue())
	})

	It("rejects a reference to a symbolic send id that no send action declared", func() {
		r := &rule.Rule{
			ID: "unresolved-reference",
			Entries: []rule.Entry{
				{Kind: rule.KindWatch, Watch: &rule.Watch{ID: "w0", Part: "path", Pattern: `id=(\d+)`}},
				{Kind: rule.KindChange, Change: &rule.Change{ID: "c0", WatchID: "0", Placement: "replace", Values: []string{"-1"}}},
				{Kind: rule.KindSend, Send: &rule.Send{ID: "", Apply: "0"}},
				{
					Kind: rule.KindFind,
					Find: &rule.Find{
						ID:      "f0",
						LookFor: "any",
						Exec: []rule.RawExpr{
							{
								Name:          "F",
								OperationName: "=",
								Args:          []expr.RawArg{expr.NewRawArg("reference", "probe.response.body"), expr.NewRawArg("string", "ok")},
							},
						},
					},
				},
			},
		}

		err := r.CheckUp()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("probe"))
	})

	It("rejects a variable referenced before the expression that declares it", func() {
		r := &rule.Rule{
			ID: "variable-ordering",
			Entries: []rule.Entry{
				{
					Kind: rule.KindFind,
					Find: &rule.Find{
						ID:      "f0",
						LookFor: "any",
						Exec: []rule.RawExpr{
							{
								Name:          "B",
								OperationName: ">",
								Args:          []expr.RawArg{expr.NewRawArg("variable", "L"), expr.NewRawArg("int", "0")},
							},
							{
								Name:          "L",
								OperationName: "len",
								Args:          []expr.RawArg{expr.NewRawArg("reference", "0.response.headers.content-type")},
							},
						},
					},
				},
			},
		}

		err := r.CheckUp()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("L"))
	})
})
