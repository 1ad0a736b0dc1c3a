package prdgen

// SectionStatus tracks a section through generation.
type SectionStatus string

const (
	SectionPending   SectionStatus = "pending"
	SectionStreaming SectionStatus = "streaming"
	SectionDone      SectionStatus = "done"
	SectionFailed    SectionStatus = "failed"
)

// Section is one named unit of a Document. Sections are generated strictly
// in template order and never re-ordered.
type Section struct {
	Title  string
	Body   string
	Status SectionStatus
}

// Completeness marks a Document's terminal outcome. The zero value means
// synthesis has not finished.
type Completeness string

const (
	// DocumentComplete means every section is done.
	DocumentComplete Completeness = "complete"

	// DocumentPartial means a section failed after at least one was done.
	// Completed sections are retained; synthesis can resume from the
	// failed section.
	DocumentPartial Completeness = "partial"

	// DocumentFailed means a section failed before any section was done.
	DocumentFailed Completeness = "failed"
)

// Document is the generated artifact. Its section titles and order always
// equal the framework template it was created from.
type Document struct {
	Framework    Framework
	Title        string
	Sections     []Section
	Completeness Completeness
	Usage        Usage // accumulated across all generation calls
}

// NewDocument seeds a Document with pending sections from the framework's
// template.
func NewDocument(fw Framework) Document {
	titles := fw.Template()
	sections := make([]Section, len(titles))
	for i, t := range titles {
		sections[i] = Section{Title: t, Status: SectionPending}
	}
	return Document{Framework: fw, Sections: sections}
}

// ResumeIndex returns the index of the first section that is not done, or
// len(Sections) when every section is done. Synthesis starts here, so
// completed sections are never redone.
func (d *Document) ResumeIndex() int {
	for i, s := range d.Sections {
		if s.Status != SectionDone {
			return i
		}
	}
	return len(d.Sections)
}

// AllDone reports whether every section is done.
func (d *Document) AllDone() bool {
	return d.ResumeIndex() == len(d.Sections)
}

// Clone returns a deep copy. History entries hold clones so later session
// activity cannot reach into recorded documents.
func (d *Document) Clone() Document {
	out := *d
	out.Sections = make([]Section, len(d.Sections))
	copy(out.Sections, d.Sections)
	return out
}
