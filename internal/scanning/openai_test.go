package scanning

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	openai "github.com/sashabaranov/go-openai"
)

var _ = Describe("OpenAI", func() {
	var (
		server  *ghttp.Server
		scanner *OpenAI
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var err error
		scanner, err = NewOpenAI("sk-test", "", server.URL()+"/v1")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	It("should require an API key", func() {
		_, err := NewOpenAI("", "", "")
		Expect(err).To(MatchError(ContainSubstring("api key is required")))
	})

	It("should default the model", func() {
		Expect(scanner.model).To(Equal(openai.GPT4oMini))
	})

	It("should send the image as a data URL and return the transcript", func() {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, "/v1/chat/completions"),
			ghttp.VerifyHeaderKV("Authorization", "Bearer sk-test"),
			func(w http.ResponseWriter, r *http.Request) {
				var req openai.ChatCompletionRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.Messages).To(HaveLen(1))
				parts := req.Messages[0].MultiContent
				Expect(parts).To(HaveLen(2))
				Expect(parts[0].Text).To(Equal(transcribePrompt))
				Expect(parts[1].ImageURL).NotTo(BeNil())
				Expect(strings.HasPrefix(parts[1].ImageURL.URL, "data:image/png;base64,")).To(BeTrue())
			},
			ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"model":  openai.GPT4oMini,
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": "Total 4.00\n"},
				}},
			}),
		))

		text, err := scanner.ExtractText(context.Background(), []byte("png bytes"), "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Total 4.00"))
	})

	It("should fail when no choices come back", func() {
		server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
			"id":      "chatcmpl-2",
			"object":  "chat.completion",
			"choices": []any{},
		}))

		_, err := scanner.ExtractText(context.Background(), []byte("png bytes"), "image/png")
		Expect(err).To(MatchError(ContainSubstring("no response")))
	})

	It("should wrap API errors", func() {
		server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"message": "invalid api key", "type": "invalid_request_error"},
		}))

		_, err := scanner.ExtractText(context.Background(), []byte("png bytes"), "image/png")
		Expect(err).To(MatchError(ContainSubstring("openai error")))
	})
})
