package memory_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/pkg/memory"
)

var _ = Describe("EstimateTokens", func() {
	It("rounds a quarter of the rune count up", func() {
		Expect(memory.EstimateTokens("")).To(Equal(0))
		Expect(memory.EstimateTokens("a")).To(Equal(1))
		Expect(memory.EstimateTokens("abcd")).To(Equal(1))
		Expect(memory.EstimateTokens("abcde")).To(Equal(2))
		Expect(memory.EstimateTokens("perché")).To(Equal(2))
	})
})

var _ = Describe("Buffer", func() {
	turn := func(n int) memory.Turn {
		return memory.Turn{Question: strings.Repeat("q", n), Answer: strings.Repeat("a", n)}
	}

	It("defaults the limit", func() {
		b := memory.NewBuffer(0)
		b.Append(turn(4 * memory.DefaultTokenLimit / 2))
		b.Append(turn(4))
		Expect(b.Len()).To(Equal(1))
	})

	It("evicts the oldest turns first", func() {
		b := memory.NewBuffer(6)
		b.Append(memory.Turn{Question: "uno!", Answer: "uno!"})
		b.Append(memory.Turn{Question: "due!", Answer: "due!"})
		b.Append(memory.Turn{Question: "tre!", Answer: "tre!"})
		b.Append(memory.Turn{Question: "quat", Answer: "quat"})

		Expect(b.Len()).To(Equal(3))
		Expect(b.Tokens()).To(Equal(6))
		Expect(b.Messages()[0].Content).To(Equal("due!"))
	})

	It("keeps a single turn larger than the budget", func() {
		b := memory.NewBuffer(2)
		b.Append(turn(40))
		Expect(b.Len()).To(Equal(1))
		Expect(b.Tokens()).To(Equal(20))

		b.Append(turn(4))
		Expect(b.Len()).To(Equal(1))
		Expect(b.Tokens()).To(Equal(2))
	})
})
