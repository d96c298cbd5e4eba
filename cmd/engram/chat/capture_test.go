package chatcmder

import (
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/engram/pkg/dotdir"
	"github.com/papercomputeco/engram/pkg/memory"
)

var _ = Describe("captureWorthy", func() {
	It("captures preferences", func() {
		typ, importance, ok := captureWorthy("I love fresh rye bread in the morning")
		Expect(ok).To(BeTrue())
		Expect(typ).To(Equal(memory.TypePreference))
		Expect(importance).To(Equal(6.0))
	})

	It("captures standing requests", func() {
		typ, importance, ok := captureWorthy("Please stop sending me emoji")
		Expect(ok).To(BeTrue())
		Expect(typ).To(Equal(memory.TypeRequest))
		Expect(importance).To(Equal(7.0))
	})

	It("captures milestones with high importance", func() {
		typ, importance, ok := captureWorthy("I got the job at the gallery!")
		Expect(ok).To(BeTrue())
		Expect(typ).To(Equal(memory.TypeMilestone))
		Expect(importance).To(Equal(9.0))
	})

	It("captures facts about the user's world", func() {
		typ, _, ok := captureWorthy("My dog Biscuit turned three this spring")
		Expect(ok).To(BeTrue())
		Expect(typ).To(Equal(memory.TypeFact))
	})

	It("captures day-to-day events", func() {
		typ, _, ok := captureWorthy("Yesterday we hiked the ridge trail before sunrise")
		Expect(ok).To(BeTrue())
		Expect(typ).To(Equal(memory.TypeEvent))
	})

	It("lets request cues outrank preference cues", func() {
		typ, _, ok := captureWorthy("From now on, please use my favorite nickname")
		Expect(ok).To(BeTrue())
		Expect(typ).To(Equal(memory.TypeRequest))
	})

	It("skips messages too short to carry context", func() {
		_, _, ok := captureWorthy("ok")
		Expect(ok).To(BeFalse())
	})

	It("skips messages with no cue", func() {
		_, _, ok := captureWorthy("What time is it over there right now?")
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("weighInput", func() {
	It("weighs strong positive sentiment at +3", func() {
		Expect(weighInput("This is amazing, best day in ages")).To(Equal(3.0))
	})

	It("weighs strong negative sentiment at -3", func() {
		Expect(weighInput("Honestly devastated about the news")).To(Equal(-3.0))
	})

	It("weighs mild positive sentiment at +2", func() {
		Expect(weighInput("haha that was fun")).To(Equal(2.0))
	})

	It("weighs mild negative sentiment at -2", func() {
		Expect(weighInput("feeling pretty stressed about the deadline")).To(Equal(-2.0))
	})

	It("lets strong cues outrank mild ones", func() {
		Expect(weighInput("I love this and I'm happy about it")).To(Equal(3.0))
	})

	It("weighs neutral messages at zero", func() {
		Expect(weighInput("the meeting moved to tuesday")).To(BeZero())
	})
})

var _ = Describe("buildPrompt", func() {
	It("layers system, history, and the new message", func() {
		history := []dotdir.SessionMessage{
			{Role: "user", Content: "hello there"},
			{Role: "assistant", Content: "hi, good to see you"},
		}

		prompt := buildPrompt("You are Ember.", history, "how was my week?")

		Expect(prompt).To(HavePrefix("You are Ember.\n\n"))
		Expect(prompt).To(ContainSubstring("User: hello there\n"))
		Expect(prompt).To(ContainSubstring("Assistant: hi, good to see you\n"))
		Expect(prompt).To(HaveSuffix("User: how was my week?\nAssistant:"))
	})

	It("skips messages with unknown roles", func() {
		history := []dotdir.SessionMessage{
			{Role: "system", Content: "should not appear"},
			{Role: "user", Content: "hello"},
		}

		prompt := buildPrompt("sys", history, "hi")
		Expect(prompt).NotTo(ContainSubstring("should not appear"))
	})

	It("windows long histories to the most recent messages", func() {
		history := make([]dotdir.SessionMessage, 0, 30)
		for i := range 30 {
			history = append(history, dotdir.SessionMessage{
				Role:    "user",
				Content: fmt.Sprintf("message %d", i),
			})
		}

		prompt := buildPrompt("sys", history, "latest")

		Expect(prompt).NotTo(ContainSubstring("message 9\n"))
		Expect(prompt).To(ContainSubstring("message 10\n"))
		Expect(prompt).To(ContainSubstring("message 29\n"))
		Expect(strings.Count(prompt, "User: message")).To(Equal(historyWindow))
	})
})
