package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// LoginPage serves the minimal login form. The front-end proper lives
// elsewhere; this page exists so unauthenticated browser navigation has a
// destination and the form can reach the login endpoint.
func LoginPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginHTML))
}

const loginHTML = `<!DOCTYPE html>
<html lang="fr">
<head>
  <meta charset="utf-8">
  <title>Connexion</title>
</head>
<body>
  <form id="login">
    <input type="email" name="email" placeholder="Email" required>
    <input type="password" name="password" placeholder="Mot de passe" required>
    <button type="submit">Se connecter</button>
    <p id="message"></p>
  </form>
  <script>
    document.getElementById("login").addEventListener("submit", async (e) => {
      e.preventDefault();
      const form = new FormData(e.target);
      const res = await fetch("/api/auth/login", {
        method: "POST",
        headers: { "Content-Type": "application/json" },
        body: JSON.stringify({ email: form.get("email"), password: form.get("password") }),
      });
      if (res.ok) {
        window.location.href = "/";
      } else {
        const body = await res.json().catch(() => ({}));
        document.getElementById("message").textContent = body.error || "Erreur";
      }
    });
  </script>
</body>
</html>`
