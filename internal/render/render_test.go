package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/form"
	"launchpad/internal/forms"
)

func TestRenderBindsEveryField(t *testing.T) {
	f := form.New(forms.EntrepreneurSchema)
	p := Render(f, Options{})
	require.NotNil(t, p.Form)
	for _, fd := range forms.EntrepreneurSchema.Fields {
		_, ok := p.Binding(fd.Path)
		assert.True(t, ok, fd.Path)
	}
}

func TestCommitWritesBack(t *testing.T) {
	f := form.New(forms.EntrepreneurSchema)
	p := Render(f, Options{})

	set := map[string]string{
		"founders.names":        "Ada Lovelace\nCharles Babbage",
		"founders.coFounders":   "yes",
		"company.name":          "Analytical",
		"funding.equityOffered": "50",
		"stage":                 "launched",
	}
	for path, raw := range set {
		b, ok := p.Binding(path)
		require.True(t, ok, path)
		require.NoError(t, b.Input(raw))
	}
	require.NoError(t, p.Commit())

	snap := f.Snapshot()
	assert.Equal(t, []string{"Ada Lovelace", "Charles Babbage"}, snap.List("founders.names"))
	assert.True(t, snap.Bool("founders.coFounders"))
	assert.Equal(t, "Analytical", snap.String("company.name"))
	assert.Equal(t, "launched", snap.String("stage"))
	n, ok := snap.Number("funding.equityOffered")
	require.True(t, ok)
	assert.Equal(t, float64(50), n)
}

func TestGroupEntriesRendered(t *testing.T) {
	f := form.New(forms.MentorSchema)
	require.NoError(t, f.AppendListItem("education", nil))
	p := Render(f, Options{})

	for _, path := range []string{"education[0].degree", "education[1].institution", "education[1].year"} {
		_, ok := p.Binding(path)
		assert.True(t, ok, path)
	}

	b, _ := p.Binding("education[1].degree")
	require.NoError(t, b.Input("MSc"))
	b, _ = p.Binding("industryFocus")
	assert.Nil(t, b)
	b, _ = p.Binding("industryExpertise")
	require.NoError(t, b.Input("AI\nCompilers"))
	require.NoError(t, p.Commit())
	assert.False(t, p.Restructured())

	snap := f.Snapshot()
	assert.Equal(t, []string{"", "MSc"}, snap.List("education.degree"))
	assert.Equal(t, []string{"AI", "Compilers"}, snap.List("industryExpertise"))
}

func TestEntryControlAddsEntry(t *testing.T) {
	f := form.New(forms.MentorSchema)
	p := Render(f, Options{})
	_, ok := p.Binding("education[1].degree")
	require.False(t, ok)

	b, _ := p.Binding("education[0].degree")
	require.NoError(t, b.Input("PhD"))
	e, ok := p.Entry("education")
	require.True(t, ok)
	e.Add()
	require.NoError(t, p.Commit())
	require.True(t, p.Restructured())

	assert.Equal(t, []string{"PhD", ""}, f.Snapshot().List("education.degree"))
	next := Render(f, Options{})
	_, ok = next.Binding("education[1].degree")
	assert.True(t, ok)
}

func TestEntryControlRemovesEntry(t *testing.T) {
	f := form.New(forms.MentorSchema)
	require.NoError(t, f.AppendListItem("education", map[string]string{"degree": "MSc"}))
	require.NoError(t, f.AppendListItem("education", map[string]string{"degree": "BA"}))
	p := Render(f, Options{})
	e, ok := p.Entry("education")
	require.True(t, ok)
	e.Remove(1)
	require.NoError(t, p.Commit())
	assert.True(t, p.Restructured())
	assert.Equal(t, []string{"", "BA"}, f.Snapshot().List("education.degree"))

	// the choice resets after it was applied
	require.NoError(t, p.Commit())
	assert.Len(t, f.Snapshot().List("education.degree"), 2)
}

func TestListKeepsCommasInItems(t *testing.T) {
	f := form.New(forms.EntrepreneurSchema)
	p := Render(f, Options{})
	b, _ := p.Binding("founders.names")
	require.NoError(t, b.Input("Doe, Jane"))
	require.NoError(t, p.Commit())
	assert.Equal(t, []string{"Doe, Jane"}, f.Snapshot().List("founders.names"))
}

func TestMultiSelectInput(t *testing.T) {
	f := form.New(forms.InvestorSchema)
	p := Render(f, Options{})
	b, ok := p.Binding("industryFocus")
	require.True(t, ok)
	require.NoError(t, b.Input("Technology,Energy"))
	require.NoError(t, p.Commit())
	assert.Equal(t, []string{"Technology", "Energy"}, f.Snapshot().List("industryFocus"))
}

func TestBoolInputRejectsGarbage(t *testing.T) {
	f := form.New(forms.EntrepreneurSchema)
	p := Render(f, Options{})
	b, _ := p.Binding("founders.coFounders")
	require.Error(t, b.Input("perhaps"))
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"a, b"}, SplitLines("a, b"))
	assert.Equal(t, []string{"a, b", "c"}, SplitLines("a, b\nc\n\n"))
	assert.Equal(t, []string{}, SplitLines(""))
	assert.Equal(t, []string{"a", "b", "c"}, SplitOptions("a, b\nc"))
}
