package mcpserver

// PageFormatGuide describes how tutorial pages are written so that LLM
// consumers produce pages that render like the existing ones.
const PageFormatGuide = `# Tutorial Page Format

Every page is one Markdown file named after its page key.

## Page keys

- Lowercase letters and digits, words joined by "-" or "_" (e.g. ` + "`step-3`" + `).
- At most 64 characters. No slashes, no dots, no ".md" suffix.
- The default tutorial uses ` + "`index`, `step-1` … `step-6`, `penutup`" + `, in that reading order.
  Other pages are listed after them alphabetically.

## Structure

~~~markdown
## 🎨 Menambahkan Avatar

Short introduction paragraph. It becomes the page summary in search.

## 🖼️ Next section

Steps, lists and fenced code blocks with a language tag:

` + "```" + `html
<img src="avatar.jpg" alt="Foto Profil" class="avatar">
` + "```" + `

> Closing callout pointing to the next step, e.g. **Step 4 - Nama dan Deskripsi**.
~~~

## Rules

1. The first heading (any level) is the page title shown in navigation and search.
   A YAML frontmatter ` + "`title`" + ` overrides it; ` + "`description`" + ` overrides the summary.
2. GitHub-flavoured Markdown is supported: tables, strikethrough, task lists, autolinks.
3. Raw HTML passes through unless the server runs in safe mode; prefer Markdown.
4. Content is stored verbatim. Blank pages are rejected.
5. Encoding is UTF-8.
`
