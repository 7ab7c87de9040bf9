package fallback

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/zhouzirui/bzik/backend/internal/model/persona"
)

// Source 标识回复由哪条规则产生。
type Source string

const (
	SourceGreeting    Source = "greeting"
	SourceHowAreYou   Source = "how_are_you"
	SourceDomain      Source = "domain"
	SourceIdentity    Source = "identity"
	SourceHelp        Source = "help"
	SourceGratitude   Source = "gratitude"
	SourceFarewell    Source = "farewell"
	SourceKeyword     Source = "keyword"
	SourceUnknown     Source = "unknown"
	SourceEmptyPrompt Source = "empty"
)

// Decision is the reply chosen for a message together with the rule that fired.
type Decision struct {
	Reply  string
	Source Source
}

type phraseReply struct {
	phrase string
	reply  string
}

var greetings = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yo": {}, "sup": {}, "what's up": {}, "hey there": {},
}

var howAreYouPhrases = []string{"how are you", "how you doing", "how's it going", "how you been"}

// Ordered: the first matching phrase wins, so "business features" must precede "features".
var domainReplies = []phraseReply{
	{"business features", "I offer comprehensive business solutions including 24/7 customer support automation, intelligent lead generation, personalized marketing campaigns, data analytics, multi-language support, seamless API integration, and enterprise-grade security."},
	{"features", "My key features include natural language processing, conversational AI, voice synthesis, mobile optimization, conversation memory, sentiment analysis, and multi-language support. I'm designed to work across all platforms!"},
	{"pricing", "Pricing varies based on your needs. I offer flexible plans for startups, growing businesses, and enterprises. Check with my team for a custom quote!"},
	{"api", "Yes, I have a full REST API for integration! It supports real-time chat, voice responses, user management, and custom webhooks. Documentation is available at our developer portal."},
	{"integration", "I integrate with popular platforms like Slack, Teams, WhatsApp, Facebook Messenger, and more. Custom integrations are also available!"},
}

var identityReplies = []phraseReply{
	{"who are you", "I'm Bzik, an AI assistant powered by cutting-edge language models. I'm here to help you with conversations, customer support, and so much more!"},
	{"who created you", "I was created by Bagrat, the tech mastermind behind Bzik AI!"},
	{"what is your name", "I'm Bzik! Nice to meet you! 😊"},
	{"your boss", "Bagrat is the Boss - the one and only king! 👑"},
	{"bagrat", "Bagrat is the visionary founder of Bzik and ITox. An amazing entrepreneur and innovator!"},
}

var (
	helpPhrases      = []string{"help", "assist", "support", "what can you"}
	gratitudePhrases = []string{"thank", "thanks", "appreciate", "grateful"}
	farewellPhrases  = []string{"bye", "goodbye", "see you", "take care", "exit", "quit"}
)

var greetingReplies = []string{
	"Hey there! 👋 How's it going?",
	"Hi! %s here. What can I help you with today?",
	"Hello! Great to see you! 😊",
	"Hey! What's on your mind?",
	"What's up! How can I assist?",
}

var howAreYouReplies = []string{
	"I'm doing great, thanks for asking! How about you?",
	"I'm fantastic! Ready to help. What about you?",
	"All systems go! 🚀 How are things with you?",
	"Feeling good! What can I do for you?",
	"I'm running smoothly! How can I help?",
}

var helpReplies = []string{
	"I can help with conversation, answer questions, provide information, or just chat! What would you like?",
	"I'm here to assist! You can ask me about my features, services, or anything else on your mind.",
	"I can help with customer support, sales inquiries, technical questions, or general conversation. What interests you?",
	"Feel free to ask me anything! I'm designed to be helpful, informative, and friendly.",
}

var keywordReplies = []string{
	"That's a great point about %s! I'd love to learn more.",
	"Interesting question about %s! Here's what I know: I'm always happy to help with topics like this.",
	"When it comes to %s, I think that's really important. How can I assist further?",
}

var unknownReplies = []string{
	"That's an interesting question! While I don't have a specific answer right now, I'd love to help if you can tell me more.",
	"Hmm, I'm not sure about that one. Can you give me more context?",
	"That's a great question! I might not have all the details, but I'm always learning. What else can I help with?",
	"I'm not quite sure about that, but I'm happy to help with other questions!",
	"That's outside my current knowledge base, but feel free to ask something else!",
}

const (
	gratitudeReply = "You're very welcome! Happy to help! 😊"
	farewellReply  = "Goodbye! It was great chatting with you. Have an awesome day! 👋"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "is": {}, "are": {}, "be": {}, "was": {}, "were": {}, "i": {},
	"you": {}, "we": {}, "he": {}, "she": {}, "it": {}, "what": {}, "how": {}, "why": {},
	"when": {}, "where": {}, "can": {}, "could": {}, "would": {}, "should": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "have": {}, "has": {}, "had": {},
}

// Reply returns the fallback answer for message spoken as p. It never returns an
// empty string.
func Reply(message string, p persona.Persona) string {
	return Decide(message, p).Reply
}

// Decide evaluates the rules in order; the first match wins. Variant choice within a
// rule depends only on (message, persona), so the same input always yields the same
// reply.
func Decide(message string, p persona.Persona) Decision {
	lower := strings.ToLower(strings.TrimSpace(message))
	seed := variantSeed(lower, p.ID)

	if lower == "" {
		return Decision{Reply: pick(helpReplies, seed), Source: SourceEmptyPrompt}
	}
	if _, ok := greetings[lower]; ok {
		return Decision{Reply: greeting(seed, p), Source: SourceGreeting}
	}
	if containsAny(lower, howAreYouPhrases) {
		return Decision{Reply: pick(howAreYouReplies, seed), Source: SourceHowAreYou}
	}
	if reply, ok := firstPhrase(lower, domainReplies); ok {
		return Decision{Reply: reply, Source: SourceDomain}
	}
	if reply, ok := firstPhrase(lower, identityReplies); ok {
		return Decision{Reply: reply, Source: SourceIdentity}
	}
	if containsAny(lower, helpPhrases) {
		return Decision{Reply: pick(helpReplies, seed), Source: SourceHelp}
	}
	if containsAny(lower, gratitudePhrases) {
		return Decision{Reply: gratitudeReply, Source: SourceGratitude}
	}
	if containsAny(lower, farewellPhrases) {
		return Decision{Reply: farewellReply, Source: SourceFarewell}
	}

	if keywords := Keywords(message, 3); len(keywords) > 0 {
		return Decision{Reply: fmt.Sprintf(pick(keywordReplies, seed), keywords[0]), Source: SourceKeyword}
	}
	return Decision{Reply: pick(unknownReplies, seed), Source: SourceUnknown}
}

// Keywords extracts up to limit alphabetic words longer than three letters that are
// not stop words, in message order.
func Keywords(text string, limit int) []string {
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if len(keywords) >= limit {
			break
		}
		if len([]rune(word)) <= 3 || !isAlpha(word) {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

func greeting(seed uint32, p persona.Persona) string {
	tmpl := pick(greetingReplies, seed)
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	name := p.Name
	if name == "" {
		name = "Bzik"
	}
	return fmt.Sprintf(tmpl, name)
}

func firstPhrase(lower string, table []phraseReply) (string, bool) {
	for _, entry := range table {
		if strings.Contains(lower, entry.phrase) {
			return entry.reply, true
		}
	}
	return "", false
}

func containsAny(lower string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func isAlpha(word string) bool {
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return word != ""
}

func variantSeed(lower string, id persona.ID) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(lower))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(id))
	return h.Sum32()
}

func pick(options []string, seed uint32) string {
	return options[int(seed%uint32(len(options)))]
}
