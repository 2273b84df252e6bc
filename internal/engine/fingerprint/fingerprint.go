// Package fingerprint derives a position-independent identity for an issue
// from the syntax surrounding it.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"log/slog"

	coreerrors "checkdelta/internal/core/errors"
	"checkdelta/internal/core/model"
	"checkdelta/internal/core/ports"
	"checkdelta/internal/engine/parser"
	"checkdelta/internal/engine/scope"
	"checkdelta/internal/shared/observability"
)

// Digest hashes the scope name and the leaf token kinds of region. Literal
// text and positions are not part of the digest.
func Digest(region *parser.Region) string {
	h := sha256.New()
	writeLine(h, region.Scope.String())
	for _, kind := range region.Kinds() {
		writeLine(h, kind)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeLine(h hash.Hash, s string) {
	_, _ = io.WriteString(h, s)
	_, _ = h.Write([]byte{'\n'})
}

// Classifier maps a rule type to its scope.
type Classifier interface {
	Classify(ruleType string) scope.Scope
}

// Miss records an issue whose scope could not be located.
type Miss struct {
	Issue  model.Issue
	Reason string
	Err    error
}

type cachedTree struct {
	tree *parser.Tree
	err  error
}

// Session computes fingerprints for one differencing run. Parsed sources
// are cached by file name until Close. Not safe for concurrent use.
type Session struct {
	resolver   ports.SourceResolver
	classifier Classifier
	locator    *parser.Locator
	logger     *slog.Logger

	trees  map[string]cachedTree
	misses []Miss
}

func NewSession(resolver ports.SourceResolver, classifier Classifier, locator *parser.Locator, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		resolver:   resolver,
		classifier: classifier,
		locator:    locator,
		logger:     logger,
		trees:      make(map[string]cachedTree),
	}
}

// Fingerprint returns the stored fingerprint of issue, or computes one from
// its source. ok is false when the source or scope cannot be resolved.
func (s *Session) Fingerprint(issue model.Issue) (string, bool) {
	if issue.HasFingerprint() {
		return issue.Fingerprint, true
	}
	if s == nil || s.resolver == nil || s.locator == nil {
		return "", false
	}

	tree, err := s.tree(issue.FileName)
	if err != nil {
		s.miss(issue, err)
		return "", false
	}
	region, err := s.locator.Locate(tree, s.classifier.Classify(issue.Type), issue.LineStart)
	if err != nil {
		s.miss(issue, err)
		return "", false
	}
	return Digest(region), true
}

// Attach fills in missing fingerprints and returns how many were added.
func (s *Session) Attach(issues []model.Issue) int {
	added := 0
	for i := range issues {
		if issues[i].HasFingerprint() {
			continue
		}
		if fp, ok := s.Fingerprint(issues[i]); ok {
			issues[i].Fingerprint = fp
			added++
		}
	}
	return added
}

// Misses lists the issues that could not be fingerprinted so far.
func (s *Session) Misses() []Miss {
	if s == nil {
		return nil
	}
	return s.misses
}

// Close releases every cached tree.
func (s *Session) Close() {
	if s == nil {
		return
	}
	for name, entry := range s.trees {
		entry.tree.Close()
		delete(s.trees, name)
	}
}

func (s *Session) tree(fileName string) (*parser.Tree, error) {
	if entry, ok := s.trees[fileName]; ok {
		return entry.tree, entry.err
	}
	if !s.locator.Supports(fileName) {
		err := coreerrors.AddContext(
			parser.Miss(parser.ReasonUnsupported, fmt.Sprintf("no grammar for %s", fileName)),
			coreerrors.CtxPath, fileName)
		s.trees[fileName] = cachedTree{err: err}
		return nil, err
	}
	content, err := s.resolver.Read(fileName)
	if err != nil {
		err = readError(fileName, err)
		s.trees[fileName] = cachedTree{err: err}
		return nil, err
	}
	tree, err := s.locator.Parse(content)
	s.trees[fileName] = cachedTree{tree: tree, err: err}
	return tree, err
}

// Any read failure counts as a missing file; unreadable and absent sources
// degrade the same way.
func readError(fileName string, err error) error {
	miss := parser.Miss(parser.ReasonFileMissing, fmt.Sprintf("cannot read %s: %v", fileName, err))
	return coreerrors.AddContext(miss, coreerrors.CtxPath, fileName)
}

func (s *Session) miss(issue model.Issue, err error) {
	reason := parser.MissReason(err)
	if reason == "" {
		reason = parser.ReasonParseFailed
	}
	s.misses = append(s.misses, Miss{Issue: issue, Reason: reason, Err: err})
	observability.FingerprintMissesTotal.WithLabelValues(reason).Inc()
	s.logger.Debug("fingerprint unavailable",
		"file", issue.FileName, "line", issue.LineStart, "rule", issue.Type, "reason", reason)
}
