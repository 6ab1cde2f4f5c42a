package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/crmchat/pkg/llm"
	"github.com/papercomputeco/crmchat/pkg/llm/provider/openai"
	"github.com/papercomputeco/crmchat/pkg/retry"
)

var _ = Describe("Generator", func() {
	var (
		server   *httptest.Server
		received struct {
			Model    string        `json:"model"`
			Messages []llm.Message `json:"messages"`
		}
		auth   string
		status int
		reply  string
	)

	BeforeEach(func() {
		status = http.StatusOK
		reply = `{"choices":[{"index":0,"message":{"role":"assistant","content":"<response>Anemoi</response>"}}]}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			Expect(r.URL.Path).To(Equal("/v1/chat/completions"))
			auth = r.Header.Get("Authorization")
			Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
			w.WriteHeader(status)
			_, _ = w.Write([]byte(reply))
		}))
		DeferCleanup(server.Close)
	})

	It("requires an API key", func() {
		_, err := openai.New(openai.Config{})
		Expect(err).To(MatchError(openai.ErrMissingAPIKey))
	})

	It("sends the conversation and returns the first choice", func() {
		g, err := openai.New(openai.Config{BaseURL: server.URL, APIKey: "sk-test", Model: "gpt-test"})
		Expect(err).NotTo(HaveOccurred())

		out, err := g.Generate(context.Background(), []llm.Message{
			llm.System("sei un assistente"),
			llm.User("Domanda: Anemoi?"),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("<response>Anemoi</response>"))
		Expect(auth).To(Equal("Bearer sk-test"))
		Expect(received.Model).To(Equal("gpt-test"))
		Expect(received.Messages).To(HaveLen(2))
		Expect(received.Messages[0].Role).To(Equal(llm.RoleSystem))
	})

	It("returns a retryable status error on 5xx", func() {
		status = http.StatusBadGateway
		reply = `{"error":{"message":"upstream"}}`
		g, _ := openai.New(openai.Config{BaseURL: server.URL, APIKey: "sk-test"})

		_, err := g.Generate(context.Background(), []llm.Message{llm.User("x")})
		Expect(err).To(MatchError(llm.ErrGeneration))
		var se *llm.StatusError
		Expect(err).To(BeAssignableToTypeOf(se))
		Expect(retry.IsRetryable(err)).To(BeTrue())
	})

	It("fails when no choices come back", func() {
		reply = `{"choices":[]}`
		g, _ := openai.New(openai.Config{BaseURL: server.URL, APIKey: "sk-test"})

		_, err := g.Generate(context.Background(), []llm.Message{llm.User("x")})
		Expect(err).To(MatchError(ContainSubstring("no choices")))
	})
})
