package provider_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/pkg/llm"
	"github.com/papercomputeco/crmchat/pkg/llm/provider"
	"github.com/papercomputeco/crmchat/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/crmchat/pkg/llm/provider/ollama"
	"github.com/papercomputeco/crmchat/pkg/llm/provider/openai"
	"github.com/papercomputeco/crmchat/pkg/retry"
)

var _ = Describe("New", func() {
	It("builds each supported provider", func() {
		g, err := provider.New(provider.Options{ProviderType: provider.OpenAI, APIKey: "sk"})
		Expect(err).NotTo(HaveOccurred())
		Expect(g).To(BeAssignableToTypeOf(&openai.Generator{}))
		Expect(g.Model()).To(Equal(openai.DefaultModel))

		g, err = provider.New(provider.Options{ProviderType: provider.Anthropic, APIKey: "sk", Model: "claude-x"})
		Expect(err).NotTo(HaveOccurred())
		Expect(g).To(BeAssignableToTypeOf(&anthropic.Generator{}))
		Expect(g.Model()).To(Equal("claude-x"))

		g, err = provider.New(provider.Options{ProviderType: provider.Ollama})
		Expect(err).NotTo(HaveOccurred())
		Expect(g).To(BeAssignableToTypeOf(&ollama.Generator{}))
	})

	It("propagates missing credentials", func() {
		_, err := provider.New(provider.Options{ProviderType: provider.OpenAI})
		Expect(err).To(MatchError(openai.ErrMissingAPIKey))
	})

	It("wraps with retries when a policy is given", func() {
		p := retry.Policy{MaxRetries: 1, RetryDelay: time.Millisecond}
		g, err := provider.New(provider.Options{ProviderType: provider.Ollama, Retry: &p})
		Expect(err).NotTo(HaveOccurred())
		Expect(g).To(BeAssignableToTypeOf(&llm.Retrying{}))
		Expect(g.Model()).To(Equal(ollama.DefaultModel))
	})

	It("rejects unknown providers", func() {
		_, err := provider.New(provider.Options{ProviderType: "bedrock"})
		Expect(err).To(MatchError(ContainSubstring(`unknown provider type: "bedrock"`)))
	})

	It("knows which providers need a key", func() {
		Expect(provider.RequiresAPIKey(provider.OpenAI)).To(BeTrue())
		Expect(provider.RequiresAPIKey(provider.Ollama)).To(BeFalse())
	})
})
