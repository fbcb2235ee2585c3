package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const careersPage = `<html><head><title>Careers | NVIDIA</title>
<script nonce="abc">window.x = 1</script><style>.a{}</style></head>
<body>
  <nav>Home About</nav>
  <section data-automation-id="jobPostings">
    <ul>
      <li><h3 class="title">Intern,   Compiler Team</h3><span>Santa Clara</span></li>
      <li><h3 class="title">Student Researcher</h3><span>Remote</span></li>
    </ul>
  </section>
</body></html>`

func TestPageScopesToFirstMatchingSelector(t *testing.T) {
	res, err := Page(careersPage, []string{"#missing", `[data-automation-id="jobPostings"]`}, "h3.title")
	require.NoError(t, err)

	assert.Equal(t, `[data-automation-id="jobPostings"]`, res.Scope)
	assert.Equal(t, "Intern, Compiler Team\nSanta Clara\nStudent Researcher\nRemote", res.Text)
	assert.Equal(t, []string{"Intern, Compiler Team", "Student Researcher"}, res.Items)
	assert.NotContains(t, res.Text, "Home")
}

func TestPageFallsBackToBody(t *testing.T) {
	res, err := Page(careersPage, []string{"#missing"}, "")
	require.NoError(t, err)

	assert.Empty(t, res.Scope)
	assert.Contains(t, res.Text, "Home About")
	assert.NotContains(t, res.Text, "window.x")
	assert.Nil(t, res.Items)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Careers | NVIDIA", Title(careersPage))
}
