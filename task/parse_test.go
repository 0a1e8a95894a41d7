package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeloop/block"
)

func TestParseReplyExtractsExecutableBlocks(t *testing.T) {
	reply := "Here is the plan.\n" +
		"```python name=fetch\n" +
		"print('fetching')\n" +
		"```\n" +
		"Then verify:\n" +
		"```bash\n" +
		"ls -la\n" +
		"```\n" +
		"Done."

	blocks := ParseReply(reply)
	require.Len(t, blocks, 2)

	assert.Equal(t, "fetch", blocks[0].Name)
	assert.Equal(t, block.LangPython, blocks[0].Language)
	assert.Equal(t, "print('fetching')", blocks[0].Code)

	assert.Equal(t, block.LangBash, blocks[1].Language)
	assert.Equal(t, "ls -la", blocks[1].Code)
	assert.NotEmpty(t, blocks[1].Name)
}

func TestParseReplySkipsNonExecutableFences(t *testing.T) {
	reply := "Config:\n" +
		"```json\n" +
		"{\"key\": \"value\"}\n" +
		"```\n" +
		"```\n" +
		"plain fence\n" +
		"```\n"
	assert.Empty(t, ParseReply(reply))
	assert.False(t, HasCodeBlocks(reply))
}

func TestParseReplyPlainText(t *testing.T) {
	assert.Empty(t, ParseReply("All done, nothing left to run."))
}

func TestParseReplyLanguageAliases(t *testing.T) {
	reply := "```sh\necho hi\n```\n```js\nconsole.log(1)\n```"
	blocks := ParseReply(reply)
	require.Len(t, blocks, 2)
	assert.Equal(t, block.LangBash, blocks[0].Language)
	assert.Equal(t, block.LangJavaScript, blocks[1].Language)
}

func TestParseReplyUnterminatedFence(t *testing.T) {
	reply := "```python\nprint('no closing fence')"
	blocks := ParseReply(reply)
	require.Len(t, blocks, 1)
	assert.Equal(t, "print('no closing fence')", blocks[0].Code)
}

func TestParseReplyEmptyBlockIgnored(t *testing.T) {
	reply := "```python\n\n```"
	assert.Empty(t, ParseReply(reply))
}

func TestParseReplyIndentedFence(t *testing.T) {
	reply := "  ```bash\n  echo indented\n  ```"
	blocks := ParseReply(reply)
	require.Len(t, blocks, 1)
	assert.Equal(t, block.LangBash, blocks[0].Language)
}
