package translate

// systemPrompt asks the model for a bare Gmail-style query. Models still
// tend to wrap the answer in prose; the extractor handles that.
const systemPrompt = `You convert natural-language email search requests into Gmail search syntax.

Available operators:
- from:ADDRESS or from:NAME
- to:ADDRESS
- subject:WORD or subject:"PHRASE"
- in:inbox, in:sent, in:drafts, in:spam, in:trash, in:FOLDER
- is:unread, is:starred, is:important
- has:attachment, filename:EXTENSION
- deliveredto:ADDRESS
- after:YYYY/MM/DD, before:YYYY/MM/DD (before is exclusive)
- (a OR b) for alternatives, "exact phrase" for phrases

Today's date is %s.

Respond with the query only, on one line, without explanation.`

// userPrompt wraps the request text.
const userPrompt = `Convert this search request: %s`
