package mcpserver

// NoteFormatContract describes the Markdown documents create_note and
// update_note accept and read_note returns.
const NoteFormatContract = `# Note Format Contract

Notes are exchanged as Markdown with a YAML frontmatter header.

## Structure

` + "```" + `markdown
---
title: Human-readable title      # REQUIRED unless the body starts with a "# " heading
type: personal                   # OPTIONAL - personal (default) or project
tags: [tag-one, tag-two]         # OPTIONAL - YAML list or comma separated string
---

Body text in standard Markdown. Inline #hashtags are added to the tags.
` + "```" + `

## Rules

1. **Title and body are both required.** Notes with an empty title or body are rejected.
2. **type** is either ` + "`" + `personal` + "`" + ` or ` + "`" + `project` + "`" + `. Anything else is rejected.
3. **Tags** are case-sensitive and deduplicated; order is kept.
4. **update_note replaces** title, type, tags and body as a whole. Read the note first
   and edit the returned document.
5. **Sharing** is done with the share_note tool, not in frontmatter.
6. **Deleting** is permanent and requires ` + "`" + `confirm: true` + "`" + `.

## Example

` + "```" + `markdown
---
title: Weekly standup 2025-01-20
type: project
tags: [meeting-notes, project-x]
---

Attendees: Alice, Bob. #followup

## Action items

- Alice to review the design doc
` + "```" + `
`
