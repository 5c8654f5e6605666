// Package naftest builds annotation graphs for tests.
package naftest

import (
	"strconv"

	"github.com/OFFIS-RIT/nafstore/pkg/naf"
)

var p = naf.Ptr[string]

// Sample returns a two sentence document ("John ran yesterday. He was
// tired.") with every layer populated and most optional fields set.
func Sample() *naf.Document {
	doc := naf.New("en", "v3")
	doc.SetRawText("John ran yesterday. He was tired.")
	doc.FileDesc = &naf.FileDesc{Title: p("sample"), Filename: p("sample.txt"), Pages: naf.Ptr(1)}
	doc.Public = &naf.Public{PublicID: p("pub-1"), URI: p("http://example.org/sample")}
	doc.AddProcessor(&naf.LinguisticProcessor{Layer: "text", Name: "tokenizer", Version: p("1.0"), Hostname: p("nlp-1")})
	doc.AddProcessor(&naf.LinguisticProcessor{Layer: "terms", Name: "pos-tagger", Timestamp: p("2024-05-01T10:00:00Z")})

	forms := []string{"John", "ran", "yesterday", ".", "He", "was", "tired", "."}
	offset := 0
	for i, f := range forms {
		sent := 1
		if i >= 4 {
			sent = 2
		}
		wf := naf.NewWF(wid(i), f, sent)
		wf.Para = naf.Ptr(1)
		wf.Offset = naf.Ptr(offset)
		wf.Length = naf.Ptr(len(f))
		if i == 0 {
			wf.Page = naf.Ptr(1)
			wf.Xpath = p("/doc/p[1]")
		}
		offset += len(f) + 1
		doc.WFs = append(doc.WFs, wf)
	}

	lemmas := []string{"John", "run", "yesterday", ".", "he", "be", "tired", "."}
	pos := []string{"N", "V", "R", "O", "Q", "V", "G", "O"}
	for i, l := range lemmas {
		t := naf.NewTerm(tid(i), []*naf.WF{doc.WFs[i]})
		t.Lemma = p(l)
		t.Pos = p(pos[i])
		t.Type = p("open")
		doc.Terms = append(doc.Terms, t)
	}
	t := doc.Terms
	t[0].Morphofeat = p("NNP")
	t[0].ExternalRefs = []*naf.ExternalRef{{
		Resource:    "wikidata",
		Reference:   "Q4925477",
		Confidence:  naf.Ptr(0.8),
		ExternalRef: &naf.ExternalRef{Resource: "dbpedia", Reference: "John", ExternalRef: naf.NewExternalRef("yago", "John_(name)")},
	}}
	t[6].Sentiment = &naf.Sentiment{Polarity: p("negative"), Strength: p("1"), Resource: p("lexicon")}
	t[6].Case = p("nom")
	head := naf.NewComponent("t7.c1")
	head.Lemma = p("tire")
	head.ExternalRefs = []*naf.ExternalRef{naf.NewExternalRef("wordnet", "tire-v-1")}
	suffix := naf.NewComponent("t7.c2")
	suffix.Lemma = p("d")
	t[6].AddComponent(head, true)
	t[6].AddComponent(suffix, false)

	per := naf.NewEntity("e1", [][]*naf.Term{{t[0]}})
	per.Type = p("PER")
	per.ExternalRefs = []*naf.ExternalRef{naf.NewExternalRef("wikidata", "Q4925477")}
	doc.Entities = []*naf.Entity{per}

	obj := naf.NewDep(t[1], t[2], "mod")
	obj.Case = p("acc")
	doc.Deps = []*naf.Dep{naf.NewDep(t[1], t[0], "subj"), obj, naf.NewDep(t[5], t[4], "subj")}

	s1 := naf.NewNonTerminal("nter1", "S")
	np := naf.NewNonTerminal("nter2", "NP")
	vp := naf.NewNonTerminal("nter3", "VP")
	mustAdd(s1, np, "tre1", false)
	mustAdd(s1, vp, "tre2", true)
	mustAdd(np, naf.NewTerminal("ter1", []*naf.Term{t[0]}), "tre3", true)
	mustAdd(vp, naf.NewTerminal("ter2", []*naf.Term{t[1]}), "tre4", true)
	mustAdd(vp, naf.NewTerminal("ter3", []*naf.Term{t[2]}), "tre5", false)
	s2 := naf.NewNonTerminal("nter4", "S")
	mustAdd(s2, naf.NewTerminal("ter4", []*naf.Term{t[4], t[5], t[6]}), "tre6", false)
	doc.Constituents = []*naf.Tree{naf.NewTree(s1), naf.NewTree(s2)}

	ch := naf.NewChunk("c1", []*naf.Term{t[0]})
	ch.Phrase = p("NP")
	doc.Chunks = []*naf.Chunk{ch, naf.NewChunk("c2", []*naf.Term{t[5], t[6]})}

	co := naf.NewCoref("co1", [][]*naf.Term{{t[0]}, {t[4]}})
	co.Type = p("entity")
	doc.Corefs = []*naf.Coref{co}

	op := naf.NewOpinion("o1")
	op.Holder = &naf.OpinionHolder{Type: p("Speaker"), Span: []*naf.Term{t[4]}}
	op.Expression = &naf.OpinionExpression{Polarity: p("negative"), Strength: p("2"), Span: []*naf.Term{t[6]}}
	doc.Opinions = []*naf.Opinion{op, {ID: "o2", Target: &naf.OpinionTarget{Span: []*naf.Term{t[0]}}}}

	run := naf.NewPredicate("pr1", []*naf.Term{t[1]})
	run.URI = p("http://framenet/Self_motion")
	run.Confidence = naf.Ptr(0.9)
	run.ExternalRefs = []*naf.ExternalRef{naf.NewExternalRef("PropBank", "run.01")}
	agent := naf.NewRole("rl1", "A0", []*naf.Term{t[0]})
	agent.ExternalRefs = []*naf.ExternalRef{naf.NewExternalRef("VerbNet", "Agent")}
	run.AddRole(agent)
	run.AddRole(naf.NewRole("rl2", "AM-TMP", []*naf.Term{t[2]}))
	tired := naf.NewPredicate("pr2", []*naf.Term{t[6]})
	doc.Predicates = []*naf.Predicate{run, tired}

	fact := naf.NewFactuality(doc.WFs[1], "CERTAIN")
	fact.Confidence = naf.Ptr(0.75)
	doc.Factualities = []*naf.Factuality{fact}

	dct := naf.NewTimex3("tmx0", "DATE")
	dct.Value = p("2024-05-01")
	dct.FunctionInDocument = p("CREATION_TIME")
	dct.TemporalFunction = naf.Ptr(false)
	yesterday := naf.NewTimex3("tmx1", "DATE")
	yesterday.Value = p("2024-04-30")
	yesterday.TemporalFunction = naf.Ptr(true)
	yesterday.AnchorTimeID = p("tmx0")
	yesterday.BeginPoint = t[2]
	yesterday.Span = []*naf.WF{doc.WFs[2]}
	doc.Timexes = []*naf.Timex3{dct, yesterday}

	doc.TLinks = []*naf.TLink{
		naf.NewTLink("tl1", run, yesterday, "IS_INCLUDED"),
		naf.NewTLink("tl2", tired, dct, "BEFORE"),
	}
	cause := naf.NewCLink("cl1", run, tired)
	cause.RelType = p("CAUSE")
	doc.CLinks = []*naf.CLink{cause, naf.NewCLink("cl2", tired, run)}

	return doc
}

// Minimal returns the two word document "John ran" with one PER entity.
func Minimal() *naf.Document {
	doc := naf.New("en", "v3")
	w1, w2 := naf.NewWF("w1", "John", 1), naf.NewWF("w2", "ran", 1)
	t1, t2 := naf.NewTerm("t1", []*naf.WF{w1}), naf.NewTerm("t2", []*naf.WF{w2})
	t1.Lemma = p("John")
	t2.Lemma = p("run")
	e1 := naf.NewEntity("e1", [][]*naf.Term{{t1}})
	e1.Type = p("PER")
	doc.WFs = []*naf.WF{w1, w2}
	doc.Terms = []*naf.Term{t1, t2}
	doc.Entities = []*naf.Entity{e1}
	return doc
}

func wid(i int) string { return "w" + strconv.Itoa(i+1) }
func tid(i int) string { return "t" + strconv.Itoa(i+1) }

func mustAdd(parent, child *naf.TreeNode, edge string, head bool) {
	if err := parent.AddChild(child, edge, head); err != nil {
		panic(err)
	}
}
