package controller_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/controlkit/ctrlsim/internal/controller"
	"github.com/controlkit/ctrlsim/internal/sim"
)

// errorSequence is a fixed error trace shared by the reduction specs.
var errorSequence = []float64{1.2, -0.4, 0.9, 0.0, 2.5, -1.1}

func trace(c sim.Controller, dt float64) []float64 {
	out := make([]float64, 0, len(errorSequence))
	for _, e := range errorSequence {
		u, err := c.Compute(e, dt)
		Expect(err).NotTo(HaveOccurred())
		out = append(out, u)
	}
	return out
}

var _ = Describe("P", func() {
	It("outputs Kp times the error", func() {
		c := controller.NewP(controller.Params{Kp: 2.5})
		u, err := c.Compute(4.0, 0.04)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(Equal(10.0))
	})

	It("rejects a non-positive dt", func() {
		c := controller.NewP(controller.Params{Kp: 1.0})
		_, err := c.Compute(1.0, 0)
		Expect(errors.Is(err, sim.ErrInvalidParameter)).To(BeTrue())

		_, err = c.Compute(1.0, -0.04)
		Expect(errors.Is(err, sim.ErrInvalidParameter)).To(BeTrue())
	})
})

var _ = Describe("PI", func() {
	It("accumulates the integral rectangularly", func() {
		c := controller.NewPI(controller.Params{Kp: 1.0, Ki: 0.5})

		// Integral after the first step: 2*0.5 = 1.
		u, err := c.Compute(2.0, 0.5)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNumerically("~", 1.0*2.0+0.5*1.0, 1e-12))

		// Integral after the second step: 1 + 2*0.5 = 2.
		u, err = c.Compute(2.0, 0.5)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNumerically("~", 1.0*2.0+0.5*2.0, 1e-12))
	})

	It("keeps integrating while the error persists", func() {
		c := controller.NewPI(controller.Params{Ki: 1.0})
		var last float64
		for i := 0; i < 50; i++ {
			u, err := c.Compute(1.0, 0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(BeNumerically(">", last))
			last = u
		}
	})
})

var _ = Describe("PD", func() {
	It("uses a backward difference from a zero previous error", func() {
		c := controller.NewPD(controller.Params{Kp: 1.0, Kd: 0.5})

		// First step: derivative (1-0)/0.5 = 2.
		u, err := c.Compute(1.0, 0.5)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNumerically("~", 1.0+0.5*2.0, 1e-12))

		// Second step: derivative (2-1)/0.5 = 2.
		u, err = c.Compute(2.0, 0.5)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNumerically("~", 2.0+0.5*2.0, 1e-12))
	})
})

var _ = Describe("PID", func() {
	dt := 0.1
	params := controller.Params{Kp: 1.3, Ki: 0.7, Kd: 0.2}

	It("reduces to P with zero Ki and Kd", func() {
		pid := controller.NewPID(controller.Params{Kp: params.Kp})
		p := controller.NewP(controller.Params{Kp: params.Kp})
		Expect(trace(pid, dt)).To(Equal(trace(p, dt)))
	})

	It("reduces to PI with zero Kd", func() {
		pid := controller.NewPID(controller.Params{Kp: params.Kp, Ki: params.Ki})
		pi := controller.NewPI(controller.Params{Kp: params.Kp, Ki: params.Ki})
		Expect(trace(pid, dt)).To(Equal(trace(pi, dt)))
	})

	It("reduces to PD with zero Ki", func() {
		pid := controller.NewPID(controller.Params{Kp: params.Kp, Kd: params.Kd})
		pd := controller.NewPD(controller.Params{Kp: params.Kp, Kd: params.Kd})
		Expect(trace(pid, dt)).To(Equal(trace(pd, dt)))
	})

	It("sums all three terms", func() {
		pid := controller.NewPID(controller.Params{Kp: 1.0, Ki: 1.0, Kd: 1.0})
		// e=2, dt=0.5: P=2, I=1, D=4.
		u, err := pid.Compute(2.0, 0.5)
		Expect(err).NotTo(HaveOccurred())
		Expect(u).To(BeNumerically("~", 2.0+1.0+4.0, 1e-12))
	})
})

var _ = Describe("the whole family", func() {
	It("holds every variant at zero output for zero error", func() {
		for _, name := range controller.Names {
			c, err := controller.New(name, controller.Params{Kp: 1.0, Ki: 1.0, Kd: 1.0})
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 10; i++ {
				u, err := c.Compute(0.0, 0.04)
				Expect(err).NotTo(HaveOccurred())
				Expect(u).To(BeZero(), "controller %s step %d", name, i)
			}
		}
	})

	It("replays identically after Reset", func() {
		for _, name := range controller.Names {
			c, err := controller.New(name, controller.Params{Kp: 2.0, Ki: 0.3, Kd: 0.1})
			Expect(err).NotTo(HaveOccurred())

			first := trace(c, 0.1)
			c.Reset()
			Expect(trace(c, 0.1)).To(Equal(first), "controller %s", name)
		}
	})
})
