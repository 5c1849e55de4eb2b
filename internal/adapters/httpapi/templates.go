package httpapi

import "html/template"

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>fermPi</title>
</head>
<body>
  <h1>fermPi</h1>
  <p><a href="/logout">Log out</a></p>

  <h2>Setpoint</h2>
  <form action="/fermpi/update-set-temp" method="post">
    <label>Target temperature <input type="number" step="any" name="temp_set" value="{{.Setpoint.TempSet}}"></label>
    <label>Hysteresis <input type="number" step="any" name="th_set" value="{{.Setpoint.ThSet}}"></label>
    <label>Ambient threshold <input type="number" step="any" name="th_outer" value="{{.Setpoint.ThOuter}}"></label>
    <label>Controller
      <select name="controller_state">
        <option value="">{{with .Setpoint.ControllerState}}{{.}}{{else}}unchanged{{end}}</option>
        <option value="on">on</option>
        <option value="off">off</option>
      </select>
    </label>
    <button type="submit">Update</button>
  </form>

  <h2>Recent temperatures</h2>
  <table>
    <thead>
      <tr><th>#</th><th>Received (UTC)</th><th>Inner</th><th>Outer</th><th>Set</th></tr>
    </thead>
    <tbody>
    {{range .Samples}}
      <tr>
        <td>{{.ID}}</td>
        <td>{{.Timestamp.Format "2006-01-02 15:04:05"}}</td>
        <td>{{.TempInner}}</td>
        <td>{{.TempOuter}}</td>
        <td>{{.TempSet}}</td>
      </tr>
    {{else}}
      <tr><td colspan="5">No temperatures received yet.</td></tr>
    {{end}}
    </tbody>
  </table>
</body>
</html>
`))

var loginTmpl = template.Must(template.New("login").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>fermPi login</title>
</head>
<body>
  <h1>fermPi</h1>
  {{with .Error}}<p class="error">{{.}}</p>{{end}}
  <form action="/login" method="post">
    <label>Username <input type="text" name="user" autocomplete="username"></label>
    <label>Password <input type="password" name="password" autocomplete="current-password"></label>
    <button type="submit">Log in</button>
  </form>
</body>
</html>
`))
