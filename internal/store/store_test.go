package store

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/githubhash01/Honours-Project/internal/dynamics"
)

var _ = Describe("Store", func() {
	var (
		st  *Store
		ctx context.Context
	)

	newRun := func() *Run {
		return &Run{
			Task:       "di",
			Method:     "policy",
			Integrator: "euler",
			Seed:       42,
			Config:     "lr: 0.004",
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		st, err = Open(filepath.Join(GinkgoT().TempDir(), "bench.db"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			Expect(st.Close()).To(Succeed())
		})
	})

	Describe("SaveRun", func() {
		It("assigns id, timestamp and status", func() {
			run := newRun()
			Expect(st.SaveRun(ctx, run)).To(Succeed())
			Expect(run.ID).NotTo(BeEmpty())
			Expect(run.Status).To(Equal(StatusRunning))
			Expect(run.CreatedAt).To(BeTemporally("~", time.Now(), time.Minute))
		})

		It("round-trips all fields", func() {
			run := newRun()
			run.Notes = "baseline"
			Expect(st.SaveRun(ctx, run)).To(Succeed())

			got, err := st.GetRun(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Task).To(Equal("di"))
			Expect(got.Method).To(Equal("policy"))
			Expect(got.Integrator).To(Equal("euler"))
			Expect(got.Seed).To(Equal(int64(42)))
			Expect(got.Config).To(Equal("lr: 0.004"))
			Expect(got.Notes).To(Equal("baseline"))
			Expect(got.CreatedAt).To(BeTemporally("~", run.CreatedAt, time.Millisecond))
		})
	})

	Describe("GetRun", func() {
		It("reports missing runs", func() {
			_, err := st.GetRun(ctx, "nope")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("FinishRun", func() {
		It("records the outcome", func() {
			run := newRun()
			Expect(st.SaveRun(ctx, run)).To(Succeed())
			Expect(st.FinishRun(ctx, run.ID, StatusDone, 1.25, 3*time.Second, 64000)).To(Succeed())

			got, err := st.GetRun(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(StatusDone))
			Expect(got.FinalCost).To(Equal(1.25))
			Expect(got.WallTime).To(Equal(3 * time.Second))
			Expect(got.Steps).To(Equal(int64(64000)))
		})

		It("reports missing runs", func() {
			err := st.FinishRun(ctx, "nope", StatusDone, 0, 0, 0)
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("ListRuns", func() {
		It("returns newest first", func() {
			older := newRun()
			older.CreatedAt = time.UnixMilli(1000).UTC()
			newer := newRun()
			newer.CreatedAt = time.UnixMilli(2000).UTC()
			Expect(st.SaveRun(ctx, older)).To(Succeed())
			Expect(st.SaveRun(ctx, newer)).To(Succeed())

			runs, err := st.ListRuns(ctx, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(2))
			Expect(runs[0].ID).To(Equal(newer.ID))
			Expect(runs[1].ID).To(Equal(older.ID))
		})

		It("honors the limit", func() {
			for i := 0; i < 3; i++ {
				run := newRun()
				run.CreatedAt = time.UnixMilli(int64(1000 * (i + 1))).UTC()
				Expect(st.SaveRun(ctx, run)).To(Succeed())
			}

			runs, err := st.ListRuns(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(runs).To(HaveLen(2))
		})
	})

	Describe("curves", func() {
		It("appends batches in step order", func() {
			run := newRun()
			Expect(st.SaveRun(ctx, run)).To(Succeed())
			Expect(st.AppendCurve(ctx, run.ID, CurveTrain, 0, []float64{5, 4})).To(Succeed())
			Expect(st.AppendCurve(ctx, run.ID, CurveTrain, 2, []float64{3})).To(Succeed())
			Expect(st.AppendCurve(ctx, run.ID, CurveEval, 0, []float64{9})).To(Succeed())

			curve, err := st.Curve(ctx, run.ID, CurveTrain)
			Expect(err).NotTo(HaveOccurred())
			Expect(curve).To(Equal([]float64{5, 4, 3}))

			eval, err := st.Curve(ctx, run.ID, CurveEval)
			Expect(err).NotTo(HaveOccurred())
			Expect(eval).To(Equal([]float64{9}))
		})
	})

	Describe("trajectories", func() {
		It("round-trips states, controls and times", func() {
			run := newRun()
			Expect(st.SaveRun(ctx, run)).To(Succeed())

			res := &dynamics.Result{
				States:   []dynamics.State{{1, 0}, {0.9, -0.1}, {0.8, -0.2}},
				Controls: []dynamics.Control{{0.5}, {0.25}},
				Times:    []float64{0, 0.01, 0.02},
			}
			Expect(st.SaveTrajectory(ctx, run.ID, res)).To(Succeed())

			got, err := st.Trajectory(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.States).To(Equal(res.States))
			Expect(got.Controls).To(Equal(res.Controls))
			Expect(got.Times).To(Equal(res.Times))
			Expect(got.StepsTaken).To(Equal(2))
		})

		It("reports missing trajectories", func() {
			_, err := st.Trajectory(ctx, "nope")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("policies", func() {
		It("round-trips the serialized network", func() {
			run := newRun()
			Expect(st.SaveRun(ctx, run)).To(Succeed())
			data := []byte(`{"sizes":[2,4,1]}`)
			Expect(st.SavePolicy(ctx, run.ID, data)).To(Succeed())

			got, err := st.LoadPolicy(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(data))
		})

		It("reports missing policies", func() {
			_, err := st.LoadPolicy(ctx, "nope")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("DeleteRun", func() {
		It("removes the run and everything under it", func() {
			run := newRun()
			Expect(st.SaveRun(ctx, run)).To(Succeed())
			Expect(st.AppendCurve(ctx, run.ID, CurveTrain, 0, []float64{1})).To(Succeed())
			Expect(st.SavePolicy(ctx, run.ID, []byte("net"))).To(Succeed())

			Expect(st.DeleteRun(ctx, run.ID)).To(Succeed())

			_, err := st.GetRun(ctx, run.ID)
			Expect(err).To(MatchError(ErrNotFound))
			curve, err := st.Curve(ctx, run.ID, CurveTrain)
			Expect(err).NotTo(HaveOccurred())
			Expect(curve).To(BeEmpty())
			_, err = st.LoadPolicy(ctx, run.ID)
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("reports missing runs", func() {
			Expect(st.DeleteRun(ctx, "nope")).To(MatchError(ErrNotFound))
		})
	})

	It("keeps data across reopen", func() {
		path := filepath.Join(GinkgoT().TempDir(), "reopen.db")
		first, err := Open(path)
		Expect(err).NotTo(HaveOccurred())
		run := newRun()
		Expect(first.SaveRun(ctx, run)).To(Succeed())
		Expect(first.Close()).To(Succeed())

		second, err := Open(path)
		Expect(err).NotTo(HaveOccurred())
		defer second.Close()

		got, err := second.GetRun(ctx, run.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Task).To(Equal("di"))
	})

	It("rejects empty paths", func() {
		_, err := Open("  ")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Export", func() {
	res := &dynamics.Result{
		States:   []dynamics.State{{1, 2}, {3, 4}},
		Controls: []dynamics.Control{{0.5}},
		Times:    []float64{0, 0.1},
	}

	It("writes CSV with one row per state", func() {
		var buf bytes.Buffer
		Expect(ExportCSV(&buf, res)).To(Succeed())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		Expect(lines).To(HaveLen(3))
		Expect(lines[0]).To(Equal("time,x0,x1,u0"))
		Expect(lines[1]).To(Equal("0.000000,1.000000,2.000000,0.500000"))
		Expect(lines[2]).To(Equal("0.100000,3.000000,4.000000,0"))
	})

	It("rejects empty trajectories", func() {
		var buf bytes.Buffer
		Expect(ExportCSV(&buf, &dynamics.Result{})).NotTo(Succeed())
	})

	It("writes JSON with run, curves and trajectory", func() {
		var buf bytes.Buffer
		run := &Run{ID: "abc", Task: "di", Method: "ppo", Status: StatusDone}
		curves := map[string][]float64{CurveTrain: {3, 2}}
		Expect(ExportJSON(&buf, run, curves, res)).To(Succeed())

		var decoded ExportData
		Expect(json.Unmarshal(buf.Bytes(), &decoded)).To(Succeed())
		Expect(decoded.Run.ID).To(Equal("abc"))
		Expect(decoded.Curves[CurveTrain]).To(Equal([]float64{3, 2}))
		Expect(decoded.States).To(HaveLen(2))
		Expect(decoded.Controls).To(HaveLen(1))
	})

	It("writes curve CSV", func() {
		var buf bytes.Buffer
		Expect(ExportCurveCSV(&buf, []float64{1.5, 0.5})).To(Succeed())
		Expect(buf.String()).To(Equal("step,value\n0,1.5\n1,0.5\n"))
	})

	It("writes SVG with one path per component", func() {
		var buf bytes.Buffer
		Expect(ExportSVG(&buf, res, 200, 100)).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("<svg"))
		Expect(strings.Count(out, "<path")).To(Equal(2))
		Expect(out).To(ContainSubstring("M0.0,"))
		Expect(out).To(ContainSubstring(" L200.0,"))
	})

	It("rejects single-point trajectories for SVG", func() {
		var buf bytes.Buffer
		res := &dynamics.Result{States: []dynamics.State{{1, 2}}}
		Expect(ExportSVG(&buf, res, 0, 0)).NotTo(Succeed())
	})
})
