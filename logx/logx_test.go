/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 */

package logx_test

import (
	"github.com/sabouaram/ahttp/logx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Level", func() {
	It("parses full names case-insensitively", func() {
		Expect(logx.ParseLevel("WARNING")).To(Equal(logx.WarnLevel))
		Expect(logx.ParseLevel("debug")).To(Equal(logx.DebugLevel))
	})

	It("falls back to InfoLevel for unrecognized input", func() {
		Expect(logx.ParseLevel("nonsense")).To(Equal(logx.InfoLevel))
	})
})

var _ = Describe("Fields", func() {
	It("clones independently of the original", func() {
		f := logx.NewFields().Add("a", 1)
		c := f.Clone()
		c.Add("b", 2)

		Expect(f.Logrus()).To(HaveKey("a"))
		Expect(f.Logrus()).ToNot(HaveKey("b"))
		Expect(c.Logrus()).To(HaveKey("b"))
	})
})

var _ = Describe("Logger", func() {
	var l logx.Logger

	BeforeEach(func() {
		l = logx.New()
	})

	It("defaults to InfoLevel", func() {
		Expect(l.GetLevel()).To(Equal(logx.InfoLevel))
	})

	It("applies SetLevel", func() {
		l.SetLevel(logx.DebugLevel)
		Expect(l.GetLevel()).To(Equal(logx.DebugLevel))
	})

	It("rejects options with an invalid level", func() {
		err := l.SetOptions(logx.Options{Level: "bogus"})
		Expect(err).To(HaveOccurred())
	})

	It("accepts valid options and updates the level", func() {
		err := l.SetOptions(logx.Options{Level: logx.WarnLevel.String()})
		Expect(err).ToNot(HaveOccurred())
		Expect(l.GetLevel()).To(Equal(logx.WarnLevel))
	})

	It("writes log lines without panicking", func() {
		Expect(func() {
			l.Info("hello %s", nil, "world")
		}).ToNot(Panic())
	})
})
