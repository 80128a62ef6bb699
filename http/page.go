package http

import (
	"html/template"
	"net/http"
	"net/url"

	"churnpredict/pipeline"
)

type pageData struct {
	Values  url.Values
	Message string
	Failed  bool
}

func (d pageData) Get(field string) string {
	return d.Values.Get(field)
}

var pageFuncs = template.FuncMap{
	"geographies": func() []string {
		return []string{string(pipeline.France), string(pipeline.Spain), string(pipeline.Germany)}
	},
	"genders": func() []string {
		return []string{string(pipeline.Male), string(pipeline.Female)}
	},
	"yesNo": func() []string {
		return []string{pipeline.Yes, pipeline.No}
	},
}

var page = template.Must(template.New("page").Funcs(pageFuncs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Bank Customer Churn Prediction</title>
<style>
body { font-family: sans-serif; max-width: 40rem; margin: 2rem auto; }
label { display: block; margin-top: .6rem; }
.result { margin-top: 1rem; padding: .6rem; background: #eef6ee; }
.result.error { background: #fbeaea; }
</style>
</head>
<body>
<h1>Bank Customer Churn Prediction</h1>
<form method="post" action="/predict">
<label>Credit Score <input type="number" name="creditscore" min="1" step="1" value="{{.Get "creditscore"}}" required></label>
<label>Geography
<select name="geography">
{{- $geo := .Get "geography"}}
{{- range $g := geographies}}
<option{{if eq $g $geo}} selected{{end}}>{{$g}}</option>
{{- end}}
</select></label>
<label>Gender
<select name="gender">
{{- $gender := .Get "gender"}}
{{- range $g := genders}}
<option{{if eq $g $gender}} selected{{end}}>{{$g}}</option>
{{- end}}
</select></label>
<label>Age <input type="number" name="age" min="1" step="1" value="{{.Get "age"}}" required></label>
<label>Tenure <input type="number" name="tenure" min="0" step="1" value="{{.Get "tenure"}}" required></label>
<label>Balance <input type="number" name="balance" min="0" step="0.01" value="{{.Get "balance"}}" required></label>
<label>Number of Products <input type="number" name="numofproducts" min="1" step="1" value="{{.Get "numofproducts"}}" required></label>
<label>Has Credit Card
<select name="hascrcard">
{{- $card := .Get "hascrcard"}}
{{- range $v := yesNo}}
<option{{if eq $v $card}} selected{{end}}>{{$v}}</option>
{{- end}}
</select></label>
<label>Is Active Member
<select name="isactivemember">
{{- $active := .Get "isactivemember"}}
{{- range $v := yesNo}}
<option{{if eq $v $active}} selected{{end}}>{{$v}}</option>
{{- end}}
</select></label>
<label>Estimated Salary <input type="number" name="estimatedsalary" min="0.01" step="0.01" value="{{.Get "estimatedsalary"}}" required></label>
<p><button type="submit">Predict</button></p>
</form>
{{- if .Message}}
<div class="result{{if .Failed}} error{{end}}">{{.Message}}</div>
{{- end}}
</body>
</html>
`))

func renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	page.Execute(w, data)
}
