package git

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// CommitInfo is the display form of a commit.
type CommitInfo struct {
	Hash      string
	ShortHash string
	Author    string
	Committer string
	When      time.Time
	Subject   string
	Body      string
	Parents   []string
}

func NewCommitInfo(c *object.Commit) CommitInfo {
	committer := c.Committer
	if committer.Name == "" && committer.Email == "" && committer.When.IsZero() {
		committer = c.Author
	}
	subject, body, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	info := CommitInfo{
		Hash:      c.Hash.String(),
		ShortHash: c.Hash.String()[:7],
		Author:    formatSignature(c.Author),
		Committer: formatSignature(committer),
		When:      committer.When,
		Subject:   strings.TrimSpace(subject),
		Body:      strings.TrimSpace(body),
	}
	if info.Subject == "" {
		info.Subject = "(no commit message)"
	}
	for _, p := range c.ParentHashes {
		info.Parents = append(info.Parents, p.String())
	}
	return info
}

func formatSignature(sig object.Signature) string {
	return fmt.Sprintf("%s <%s>", sig.Name, sig.Email)
}

// FormatCommitHeader renders a commit the way `git show --no-patch` does.
func FormatCommitHeader(c *object.Commit) string {
	info := NewCommitInfo(c)
	var b strings.Builder
	fmt.Fprintf(&b, "commit %s\n", info.Hash)
	appendSignatureLine(&b, "Author", info.Author, c.Author.When)
	appendSignatureLine(&b, "Committer", info.Committer, info.When)
	b.WriteString("\n")
	message := strings.TrimRight(c.Message, "\n")
	if strings.TrimSpace(message) == "" {
		b.WriteString("    (no commit message)\n")
		return b.String()
	}
	for line := range strings.SplitSeq(message, "\n") {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "    %s\n", line)
	}
	return b.String()
}

func appendSignatureLine(b *strings.Builder, label, who string, when time.Time) {
	fmt.Fprintf(b, "%s: %s", label, who)
	if !when.IsZero() {
		fmt.Fprintf(b, "  %s", when.Format("2006-01-02 15:04:05 -0700"))
	}
	b.WriteByte('\n')
}
