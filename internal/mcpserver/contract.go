package mcpserver

// ArticleFormatContract describes how articles are stored and which
// workflow fields exist. LLM consumers should read it before writing.
const ArticleFormatContract = `# Haven Article Format Contract

Every article is one Markdown file in a flat content directory. Workflow
metadata (status, publish date, sources, word goal) is kept apart from the
file and is never written into it.

## Identity

- The article id is the file name without its extension: ` + "`" + `launch-post` + "`" + ` is stored as
  ` + "`" + `launch-post.md` + "`" + `.
- Ids must not be empty, must not start with a dot and must not contain ` + "`" + `/` + "`" + `,
  ` + "`" + `\` + "`" + ` or ` + "`" + `..` + "`" + `.

## Body

` + "```" + `markdown
# Launch Post

Opening paragraph.

## A section

More text.
` + "```" + `

1. **Title** is the text of the first line starting with ` + "`" + `# ` + "`" + `. A body without one is
   titled "Untitled".
2. Passing a title together with content removes every ` + "`" + `# ` + "`" + ` line and puts a
   single heading for the new title at the top. A title without content is ignored.
3. **Word count** is the number of whitespace-separated tokens, Markdown markers
   included (` + "`" + `# Hello` + "`" + ` is two words).
4. **Encoding** is UTF-8.

## Workflow metadata

| Field | Values | Default |
|---|---|---|
| status | draft, review, scheduled, published | draft |
| publishDate | local time, ` + "`" + `2006-01-02T15:04` + "`" + ` (seconds optional) | none |
| sources | list of non-empty strings | [] |
| wordGoal | integer >= 1 | 1000 |

- Any status may follow any other; there is no required order.
- Scheduling sets status to scheduled and the publish date in one step.
- Reminders fire when a publish date is exactly 1 or 7 whole days away.
- Deleting an article removes its metadata as well.
`
