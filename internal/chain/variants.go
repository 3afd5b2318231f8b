package chain

import (
	"github.com/firebase/genkit/go/genkit"

	"github.com/sturdystudy/sturdy/internal/log"
)

// Models names the two model slots chains draw from: Primary for quality,
// Fast for cheap high-volume calls.
type Models struct {
	Primary string // e.g. gemini-2.5-pro
	Fast    string // e.g. gemini-2.5-flash
}

// Deps bundles the shared dependencies of all chain variants.
type Deps struct {
	G         *genkit.Genkit
	Retriever Retriever
	Models    Models
	TopK      int
	Logger    log.Logger
}

func (d Deps) base(name string) *Chain {
	logger := d.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Chain{
		name:      name,
		parser:    parsePassthrough,
		topK:      d.TopK,
		g:         d.G,
		retriever: d.Retriever,
		logger:    logger.With("chain", name),
	}
}

// NewAnswer builds the grounded question-answering chain. Answers come only
// from retrieved context; unanswerable questions get a fixed refusal.
func NewAnswer(d Deps) *Chain {
	c := d.base("answer")
	c.template = answerTemplate
	c.mode = RetrieveTopK
	c.model = d.Models.Primary
	c.temperature = 0.3
	return c
}

// NewQuiz builds the on-demand quiz chain. The user's request text doubles as
// the retrieval query and the quiz instructions.
func NewQuiz(d Deps) *Chain {
	c := d.base("quiz")
	c.template = quizTemplate
	c.mode = RetrieveTopK
	c.model = d.Models.Primary
	c.temperature = 0.3
	c.parser = parseQuiz
	return c
}

// NewExam builds the whole-corpus exam chain. Context covers every document
// with source annotations so questions span the full course.
func NewExam(d Deps) *Chain {
	c := d.base("exam")
	c.template = examTemplate
	c.mode = RetrieveEverything
	c.includeSource = true
	c.model = d.Models.Fast
	c.temperature = 0.3
	c.parser = parseQuiz
	return c
}

// NewPrioritize builds the topic-prioritization chain over the whole corpus.
func NewPrioritize(d Deps) *Chain {
	c := d.base("prioritize")
	c.template = prioritizeTemplate
	c.mode = RetrieveEverything
	c.includeSource = true
	c.model = d.Models.Fast
	c.temperature = 0.2
	return c
}

// NewConceptMap builds the Graphviz concept-map chain over the whole corpus.
func NewConceptMap(d Deps) *Chain {
	c := d.base("concept-map")
	c.template = conceptMapTemplate
	c.mode = RetrieveEverything
	c.model = d.Models.Fast
	c.temperature = 0.1
	c.parser = parseDOT
	return c
}

// NewTutor builds the Socratic tutoring chain. The topic drives retrieval;
// chat history rides along as model messages.
func NewTutor(d Deps) *Chain {
	c := d.base("tutor")
	c.system = tutorSystemTemplate
	c.mode = RetrieveTopK
	c.model = d.Models.Fast
	c.temperature = 0.4
	return c
}

// NewDefinition builds the word-for-word definition extraction chain.
func NewDefinition(d Deps) *Chain {
	c := d.base("definition")
	c.template = definitionTemplate
	c.mode = RetrieveTopK
	c.model = d.Models.Fast
	c.temperature = 0
	return c
}

// NewQuerySynthesis builds the search-query synthesis chain used by web
// search augmentation.
func NewQuerySynthesis(d Deps) *Chain {
	c := d.base("query-synthesis")
	c.template = querySynthesisTemplate
	c.mode = RetrieveTopK
	c.model = d.Models.Fast
	c.temperature = 0
	return c
}

// NewResultAnalysis builds the chain that filters scraped web content down to
// actual practice problems. Context is supplied by the caller, not retrieved.
func NewResultAnalysis(d Deps) *Chain {
	c := d.base("result-analysis")
	c.template = resultAnalysisTemplate
	c.mode = RetrieveNone
	c.model = d.Models.Primary
	c.temperature = 0.3
	return c
}
